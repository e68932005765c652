package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"fiscalgw/internal/app"
	"fiscalgw/internal/config"
	"fiscalgw/internal/domain/ports"
	"fiscalgw/internal/infrastructure/logger"
	"fiscalgw/internal/service/gateway"
	"fiscalgw/pkg/netfp"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to the YAML configuration file")
		port       = flag.String("port", "", "serial port of the target printer")
		listPorts  = flag.Bool("ports", false, "list system serial ports and exit")
		detect     = flag.Bool("detect", false, "scan ports for fiscal printers")
		printFile  = flag.String("print", "", "print the Net.FP receipt document in the given JSON file")
		revFile    = flag.String("reversal", "", "print the Net.FP reversal document in the given JSON file")
		deposit    = flag.Float64("deposit", 0, "register a cash-in of the given amount")
		withdraw   = flag.Float64("withdraw", 0, "register a cash-out of the given amount")
		xreport    = flag.Bool("xreport", false, "print a daily report without zeroing")
		zreport    = flag.Bool("zreport", false, "print the daily closure report")
		duplicate  = flag.Bool("duplicate", false, "reprint the last receipt")
	)
	flag.Parse()

	log := logger.NewStdLogger("fiscalgw ")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("%v", err)
	}

	a, err := app.NewApp(cfg, log)
	if err != nil {
		log.Fatal("%v", err)
	}
	defer a.Close()

	ctx := context.Background()

	switch {
	case *listPorts:
		names, err := a.Gateway.SystemPorts()
		if err != nil {
			log.Fatal("%v", err)
		}
		for _, name := range names {
			fmt.Println(name)
		}

	case *detect:
		targets := cfg.Serial.Ports
		if *port != "" {
			targets = []string{*port}
		}
		found, err := a.Gateway.DetectAll(ctx, targets)
		if err != nil {
			log.Fatal("%v", err)
		}
		if len(found) == 0 {
			log.Info("no fiscal printers found")
			return
		}
		printJSON(found)

	case *printFile != "":
		printDocument(ctx, a, log, *port, *printFile, false)

	case *revFile != "":
		printDocument(ctx, a, log, *port, *revFile, true)

	case *deposit > 0:
		runOp(ctx, a, log, *port, func(ctx context.Context, s *gateway.Session) (netfp.Result, error) {
			return a.Gateway.Deposit(ctx, s, *deposit)
		})

	case *withdraw > 0:
		runOp(ctx, a, log, *port, func(ctx context.Context, s *gateway.Session) (netfp.Result, error) {
			return a.Gateway.Withdraw(ctx, s, *withdraw)
		})

	case *xreport:
		runOp(ctx, a, log, *port, func(ctx context.Context, s *gateway.Session) (netfp.Result, error) {
			return a.Gateway.XReport(ctx, s)
		})

	case *zreport:
		runOp(ctx, a, log, *port, func(ctx context.Context, s *gateway.Session) (netfp.Result, error) {
			return a.Gateway.ZReport(ctx, s)
		})

	case *duplicate:
		runOp(ctx, a, log, *port, func(ctx context.Context, s *gateway.Session) (netfp.Result, error) {
			return a.Gateway.Duplicate(ctx, s)
		})

	default:
		flag.Usage()
		os.Exit(2)
	}
}

func printDocument(ctx context.Context, a *app.App, log ports.Logger, port, path string, wantReversal bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatal("reading receipt document: %v", err)
	}
	var receipt netfp.Receipt
	if err := json.Unmarshal(data, &receipt); err != nil {
		log.Fatal("parsing receipt document: %v", err)
	}
	if wantReversal && !receipt.IsReversal() {
		log.Fatal("%s carries no original receipt reference", path)
	}
	runOp(ctx, a, log, port, func(ctx context.Context, s *gateway.Session) (netfp.Result, error) {
		return a.Gateway.PrintReceipt(ctx, s, receipt)
	})
}

func runOp(ctx context.Context, a *app.App, log ports.Logger, port string, op func(context.Context, *gateway.Session) (netfp.Result, error)) {
	if port == "" {
		log.Fatal("-port is required for device operations")
	}

	session, err := a.Session(ctx, port)
	if err != nil {
		log.Fatal("%v", err)
	}

	result, err := op(ctx, session)
	if err != nil {
		log.Fatal("%v", err)
	}

	printJSON(result)
	if !result.OK {
		os.Exit(1)
	}
}

func printJSON(v interface{}) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}
