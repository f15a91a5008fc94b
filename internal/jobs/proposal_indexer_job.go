package jobs

import (
	"context"
	"log"
	"time"

	"report2earn/internal/models"
	"report2earn/internal/repository"
	"report2earn/internal/services"
)

// ProposalIndexerJob periodically mirrors on-chain proposal records into
// the local cache the read API serves from.
type ProposalIndexerJob struct {
	service *services.GovernanceService
	repo    *repository.Repository
}

func NewProposalIndexerJob(service *services.GovernanceService, repo *repository.Repository) *ProposalIndexerJob {
	return &ProposalIndexerJob{service: service, repo: repo}
}

// Start begins the periodic sync
func (j *ProposalIndexerJob) Start(interval time.Duration) {
	go func() {
		// Run immediately on start
		ctx := context.Background()
		if err := j.Sync(ctx); err != nil {
			log.Printf("Initial proposal sync error: %v", err)
		}

		// Then run periodically
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			if err := j.Sync(ctx); err != nil {
				log.Printf("Proposal sync error: %v", err)
			}
		}
	}()
}

// Sync pulls all proposals from chain state and upserts the cache.
func (j *ProposalIndexerJob) Sync(ctx context.Context) error {
	records, err := j.service.GetAllProposals(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	for i := range records {
		record := &records[i]
		cached := &models.Proposal{
			ProposalID:             record.ID,
			Creator:                record.Creator,
			StartRound:             record.StartRound,
			EndRound:               record.EndRound,
			YesVotes:               record.YesVotes,
			NoVotes:                record.NoVotes,
			AbstainVotes:           record.AbstainVotes,
			Status:                 record.Status,
			DescriptionHash:        record.DescriptionHash,
			DescriptionFingerprint: record.DescriptionFingerprint,
			SyncedAt:               now,
		}
		if err := j.repo.UpsertProposal(ctx, cached); err != nil {
			log.Printf("Warning: failed to cache proposal %d: %v", record.ID, err)
		}
	}

	log.Printf("Proposal cache synced: %d records", len(records))
	return nil
}
