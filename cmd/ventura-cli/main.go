package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/venturahq/ventura/internal/apiclient"
	"github.com/venturahq/ventura/internal/clientconfig"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	cfg, cfgPath, err := clientconfig.Load()
	if err != nil {
		log.Fatalf("config error (%s): %v", cfgPath, err)
	}

	base := flag.NewFlagSet("ventura-cli", flag.ExitOnError)
	addr := base.String("addr", cfg.GRPCAddr, "gRPC address")
	token := base.String("token", clientconfig.ResolveToken(cfg), "optional auth token")
	_ = base.Parse(os.Args[1:])

	args := base.Args()
	if len(args) == 0 {
		usage()
		return
	}
	cfg.GRPCAddr = *addr

	client, err := apiclient.New(cfg, *token)
	if err != nil {
		log.Fatalf("dial error: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	command := args[0]
	commandArgs := args[1:]

	switch command {
	case "validate":
		runStart(ctx, client, commandArgs, false)
	case "swarm":
		runStart(ctx, client, commandArgs, true)
	case "result":
		runResult(ctx, client, commandArgs)
	case "watch":
		runWatch(client, cfg.RequestTimeout, commandArgs)
	case "cancel":
		runCancel(ctx, client, commandArgs)
	case "sessions":
		sessions, err := client.ListSessions(ctx)
		if err != nil {
			log.Fatalf("rpc error: %v", err)
		}
		printJSON(sessions)
	case "summary":
		call(ctx, client.GetSummary)
	case "health":
		call(ctx, client.GetHealth)
	case "export":
		call(ctx, client.ExportState)
	default:
		usage()
	}
}

func runStart(ctx context.Context, client *apiclient.Client, args []string, swarm bool) {
	name := "validate"
	if swarm {
		name = "swarm"
	}
	flags := flag.NewFlagSet(name, flag.ExitOnError)
	description := flags.String("description", "", "required")
	industry := flags.String("industry", "", "required")
	targetMarket := flags.String("target-market", "", "required")
	businessModel := flags.String("business-model", "", "required")
	region := flags.String("region", "", "optional")
	investment := flags.Float64("investment", 0, "optional initial investment")
	cashFlows := flags.String("cash-flows", "", "optional comma-separated yearly cash flows")
	discountRate := flags.Float64("discount-rate", 0.10, "optional")
	cac := flags.Float64("cac", 0, "optional customer acquisition cost")
	ltv := flags.Float64("ltv", 0, "optional customer lifetime value")
	arpu := flags.Float64("arpu", 0, "optional monthly revenue per customer")
	churn := flags.Float64("monthly-churn", 0, "optional monthly churn rate")
	_ = flags.Parse(args)

	if *description == "" || *industry == "" || *targetMarket == "" || *businessModel == "" {
		log.Fatalf("%s requires --description, --industry, --target-market and --business-model", name)
	}

	input := apiclient.StartInput{
		Description:  *description,
		Industry:     *industry,
		TargetMarket: *targetMarket,
		BusinessMod:  *businessModel,
		Region:       *region,
	}
	if *investment > 0 || *cashFlows != "" || *cac > 0 {
		flows, err := parseCashFlows(*cashFlows)
		if err != nil {
			log.Fatalf("bad --cash-flows: %v", err)
		}
		input.Financials = map[string]any{
			"initial_investment": *investment,
			"cash_flows":         flows,
			"discount_rate":      *discountRate,
			"monthly_churn":      *churn,
			"cac":                *cac,
			"ltv":                *ltv,
			"arpu":               *arpu,
		}
	}

	start := client.StartValidation
	if swarm {
		start = client.StartSwarm
	}
	response, err := start(ctx, input)
	if err != nil {
		log.Fatalf("rpc error: %v", err)
	}
	printJSON(response)
}

func runResult(ctx context.Context, client *apiclient.Client, args []string) {
	flags := flag.NewFlagSet("result", flag.ExitOnError)
	session := flags.String("session", "", "required")
	_ = flags.Parse(args)
	if *session == "" {
		log.Fatalf("result requires --session")
	}
	response, err := client.GetResult(ctx, *session)
	if err != nil {
		log.Fatalf("rpc error: %v", err)
	}
	printJSON(response)
}

// runWatch polls until the session reaches a terminal state, then prints the
// final result.
func runWatch(client *apiclient.Client, timeout time.Duration, args []string) {
	flags := flag.NewFlagSet("watch", flag.ExitOnError)
	session := flags.String("session", "", "required")
	interval := flags.Duration("interval", 2*time.Second, "poll interval")
	_ = flags.Parse(args)
	if *session == "" {
		log.Fatalf("watch requires --session")
	}

	for {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		response, err := client.GetResult(ctx, *session)
		cancel()
		if err != nil {
			log.Fatalf("rpc error: %v", err)
		}
		inProgress, _ := response["in_progress"].(bool)
		if !inProgress {
			printJSON(response)
			return
		}
		state, _ := response["state"].(string)
		phases, _ := response["phases_done"].(float64)
		scenarios, _ := response["scenarios_done"].(float64)
		log.Printf("session=%s state=%s phases_done=%d scenarios_done=%d", *session, state, int(phases), int(scenarios))
		time.Sleep(*interval)
	}
}

func runCancel(ctx context.Context, client *apiclient.Client, args []string) {
	flags := flag.NewFlagSet("cancel", flag.ExitOnError)
	session := flags.String("session", "", "required")
	_ = flags.Parse(args)
	if *session == "" {
		log.Fatalf("cancel requires --session")
	}
	response, err := client.CancelSession(ctx, *session)
	if err != nil {
		log.Fatalf("rpc error: %v", err)
	}
	printJSON(response)
}

func call(ctx context.Context, fn func(context.Context) (map[string]any, error)) {
	response, err := fn(ctx)
	if err != nil {
		log.Fatalf("rpc error: %v", err)
	}
	printJSON(response)
}

func parseCashFlows(raw string) ([]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	flows := make([]any, 0, len(parts))
	for _, part := range parts {
		value, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", part)
		}
		flows = append(flows, value)
	}
	return flows, nil
}

func printJSON(value any) {
	serialized, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		log.Fatalf("encode error: %v", err)
	}
	fmt.Println(string(serialized))
}

func usage() {
	fmt.Print(`Ventura gRPC CLI

Usage:
  ventura-cli [--addr 127.0.0.1:50051] [--token ...] <command> [flags]

Commands:
  validate --description "..." --industry "..." --target-market "..." --business-model "..." [--investment 50000 --cash-flows "-50000,20000,30000,40000"]
  swarm    --description "..." --industry "..." --target-market "..." --business-model "..."
  result   --session vs_...
  watch    --session vs_... [--interval 2s]
  cancel   --session vs_...
  sessions
  summary
  health
  export
`)
}
