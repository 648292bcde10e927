//
// FinSight AI is pleased to support the open source community by making finsight available.
//
// Copyright (C) 2025 FinSight AI.  All rights reserved.
//
// finsight is licensed under the Apache License Version 2.0.
//
//

// Command finsight runs the financial analysis chat service: a coordinator
// assistant delegating to domain specialists, served over HTTP with SSE
// streaming.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/finsight-ai/finsight/assistant/openaiapi"
	"github.com/finsight-ai/finsight/coordinator"
	"github.com/finsight-ai/finsight/log"
	"github.com/finsight-ai/finsight/marketdata"
	"github.com/finsight-ai/finsight/run"
	"github.com/finsight-ai/finsight/server"
	"github.com/finsight-ai/finsight/session/inmemory"
	"github.com/finsight-ai/finsight/telemetry/trace"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatalf("finsight: %v", err)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "finsight",
		Short: "Financial analysis assistant service",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetLevel(viper.GetString("log-level"))
		},
	}

	root.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")

	viper.SetEnvPrefix("FINSIGHT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	viper.BindPFlags(root.PersistentFlags())

	root.AddCommand(newServeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chat API server",
		RunE:  runServe,
	}

	cmd.Flags().String("addr", ":3000", "listen address")
	cmd.Flags().String("model", "gpt-4o", "assistant model")
	cmd.Flags().String("openai-api-key", "", "OpenAI API key")
	cmd.Flags().String("openai-base-url", "", "OpenAI-compatible base URL")
	cmd.Flags().String("fmp-api-key", "", "Financial Modeling Prep API key")
	cmd.Flags().Duration("run-timeout", 5*time.Minute, "overall run timeout")
	cmd.Flags().Duration("tool-timeout", 2*time.Minute, "per tool call timeout")
	cmd.Flags().String("otlp-endpoint", "", "OTLP trace endpoint; tracing disabled when empty")
	cmd.Flags().String("otlp-protocol", "grpc", "OTLP transport: grpc or http")
	viper.BindPFlags(cmd.Flags())

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	apiKey := viper.GetString("openai-api-key")
	if apiKey == "" {
		return errMissingKey("FINSIGHT_OPENAI_API_KEY")
	}
	fmpKey := viper.GetString("fmp-api-key")
	if fmpKey == "" {
		return errMissingKey("FINSIGHT_FMP_API_KEY")
	}

	if endpoint := viper.GetString("otlp-endpoint"); endpoint != "" {
		clean, err := trace.Start(ctx,
			trace.WithServiceName("finsight"),
			trace.WithEndpoint(endpoint),
			trace.WithProtocol(trace.Protocol(viper.GetString("otlp-protocol"))),
		)
		if err != nil {
			return err
		}
		defer func() {
			if err := clean(); err != nil {
				log.Warnf("finsight: shut down tracing: %v", err)
			}
		}()
	}

	apiOpts := []openaiapi.Option{openaiapi.WithAPIKey(apiKey)}
	if base := viper.GetString("openai-base-url"); base != "" {
		apiOpts = append(apiOpts, openaiapi.WithBaseURL(base))
	}
	api := openaiapi.New(apiOpts...)

	coord := coordinator.New(
		api,
		inmemory.NewStore(),
		api,
		marketdata.NewClient(fmpKey),
		viper.GetString("model"),
		run.WithRunTimeout(viper.GetDuration("run-timeout")),
		run.WithToolTimeout(viper.GetDuration("tool-timeout")),
	)

	log.Infof("finsight: provisioning assistants")
	if err := coord.Initialize(ctx); err != nil {
		return err
	}

	srv := server.New(coord, server.WithAddr(viper.GetString("addr")))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Infof("finsight: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := coord.EndConversation(shutdownCtx); err != nil {
		log.Warnf("finsight: end conversation on shutdown: %v", err)
	}
	return srv.Shutdown(shutdownCtx)
}

type errMissingKey string

func (e errMissingKey) Error() string {
	return "missing required configuration: set " + string(e)
}
