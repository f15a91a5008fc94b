package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"report2earn/internal/config"
	"report2earn/internal/ledger"
	"report2earn/internal/services"
)

const usage = `daoctl - operator tool for the voting application

Usage:
  daoctl deploy  -approval <file> -clear <file>
  daoctl create  -desc <text> [-period <rounds>] [-deposit <algos>]
  daoctl vote    -id <proposal> -choice <yes|no|abstain>
  daoctl execute -id <proposal>
  daoctl show    -id <proposal>
  daoctl list

Configuration comes from the environment (.env is honored), the same
variables the server reads: DAO_APP_ID, DAO_CREATOR_MNEMONIC, ALGORAND_NETWORK.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	client, err := ledger.NewClient(cfg.Algorand.Network, cfg.Algorand.AlgodURL, cfg.Algorand.AlgodToken)
	if err != nil {
		log.Fatalf("Failed to create ledger client: %v", err)
	}

	if cfg.Governance.CreatorMnemonic == "" {
		log.Fatal("DAO_CREATOR_MNEMONIC is required for daoctl")
	}
	signer, err := ledger.NewLocalSignerFromMnemonic(cfg.Governance.CreatorMnemonic)
	if err != nil {
		log.Fatalf("Failed to load operator key: %v", err)
	}

	service := services.NewGovernanceService(client, signer, services.GovernanceConfig{
		AppID:              cfg.Governance.AppID,
		VotingPeriodRounds: cfg.Governance.VotingPeriodRounds,
		MinDepositMicro:    ledger.AlgosToMicroAlgos(decimal.NewFromFloat(cfg.Governance.MinDepositAlgos)),
		QuorumBasisPoints:  cfg.Governance.QuorumBasisPoints,
		WaitRounds:         cfg.Algorand.WaitRounds,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "deploy":
		runDeploy(ctx, service, args)
	case "create":
		requireAppID(cfg.Governance.AppID)
		runCreate(ctx, service, args)
	case "vote":
		requireAppID(cfg.Governance.AppID)
		runVote(ctx, service, args)
	case "execute":
		requireAppID(cfg.Governance.AppID)
		runExecute(ctx, service, args)
	case "show":
		requireAppID(cfg.Governance.AppID)
		runShow(ctx, service, args)
	case "list":
		requireAppID(cfg.Governance.AppID)
		runList(ctx, service)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		os.Exit(2)
	}
}

func requireAppID(appID uint64) {
	if appID == 0 {
		log.Fatal("DAO_APP_ID is not set; deploy first and export the id")
	}
}

func runDeploy(ctx context.Context, service *services.GovernanceService, args []string) {
	fs := flag.NewFlagSet("deploy", flag.ExitOnError)
	approvalPath := fs.String("approval", "", "path to the approval program TEAL source")
	clearPath := fs.String("clear", "", "path to the clear state program TEAL source")
	fs.Parse(args)

	if *approvalPath == "" || *clearPath == "" {
		log.Fatal("deploy requires -approval and -clear")
	}

	approval, err := os.ReadFile(*approvalPath)
	if err != nil {
		log.Fatalf("Failed to read approval program: %v", err)
	}
	clear, err := os.ReadFile(*clearPath)
	if err != nil {
		log.Fatalf("Failed to read clear program: %v", err)
	}

	appID, err := service.DeployVotingApp(ctx, approval, clear)
	if err != nil {
		log.Fatalf("Deploy failed: %v", err)
	}

	fmt.Printf("Voting application deployed\n")
	fmt.Printf("  app id: %d\n", appID)
	fmt.Printf("  export DAO_APP_ID=%d\n", appID)
}

func runCreate(ctx context.Context, service *services.GovernanceService, args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	description := fs.String("desc", "", "proposal description")
	period := fs.Uint64("period", 0, "voting period in rounds (0 uses the configured default)")
	deposit := fs.Float64("deposit", 0, "deposit in algos (0 uses the configured minimum)")
	fs.Parse(args)

	if *description == "" {
		log.Fatal("create requires -desc")
	}

	depositMicro := uint64(0)
	if *deposit > 0 {
		depositMicro = ledger.AlgosToMicroAlgos(decimal.NewFromFloat(*deposit))
	}

	txID, proposalID, err := service.CreateProposal(ctx, *description, *period, depositMicro)
	if err != nil {
		log.Fatalf("Create failed: %v", err)
	}

	fmt.Printf("Proposal created\n")
	fmt.Printf("  tx: %s\n", txID)
	if proposalID != 0 {
		fmt.Printf("  proposal id: %d\n", proposalID)
	}
}

func runVote(ctx context.Context, service *services.GovernanceService, args []string) {
	fs := flag.NewFlagSet("vote", flag.ExitOnError)
	id := fs.Uint64("id", 0, "proposal id")
	choice := fs.String("choice", "", "yes, no or abstain")
	fs.Parse(args)

	if *id == 0 {
		log.Fatal("vote requires -id")
	}

	var choiceValue uint64
	switch *choice {
	case "yes":
		choiceValue = services.VoteChoiceYes
	case "no":
		choiceValue = services.VoteChoiceNo
	case "abstain":
		choiceValue = services.VoteChoiceAbstain
	default:
		// Accept the raw numeric form too.
		parsed, err := strconv.ParseUint(*choice, 10, 64)
		if err != nil {
			log.Fatalf("Invalid choice %q: want yes, no or abstain", *choice)
		}
		choiceValue = parsed
	}

	txID, err := service.Vote(ctx, *id, choiceValue)
	if err != nil {
		log.Fatalf("Vote failed: %v", err)
	}
	fmt.Printf("Vote confirmed: tx=%s\n", txID)
}

func runExecute(ctx context.Context, service *services.GovernanceService, args []string) {
	fs := flag.NewFlagSet("execute", flag.ExitOnError)
	id := fs.Uint64("id", 0, "proposal id")
	fs.Parse(args)

	if *id == 0 {
		log.Fatal("execute requires -id")
	}

	txID, err := service.ExecuteProposal(ctx, *id)
	if err != nil {
		log.Fatalf("Execute failed: %v", err)
	}
	fmt.Printf("Execution confirmed: tx=%s\n", txID)
}

func runShow(ctx context.Context, service *services.GovernanceService, args []string) {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	id := fs.Uint64("id", 0, "proposal id")
	fs.Parse(args)

	if *id == 0 {
		log.Fatal("show requires -id")
	}

	record, err := service.GetProposal(ctx, *id)
	if err != nil {
		log.Fatalf("Show failed: %v", err)
	}
	if record.Creator == "" {
		log.Fatalf("Proposal %d not found", *id)
	}

	printJSON(record)
}

func runList(ctx context.Context, service *services.GovernanceService) {
	records, err := service.GetAllProposals(ctx)
	if err != nil {
		log.Fatalf("List failed: %v", err)
	}
	if len(records) == 0 {
		fmt.Println("No proposals")
		return
	}
	printJSON(records)
}

func printJSON(v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode output: %v", err)
	}
	fmt.Println(string(out))
}
