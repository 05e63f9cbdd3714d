// Command neo4j-arrow-server runs the Arrow Flight RPC service that
// streams Neo4j graph data as columnar record batches, per spec.md §6.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/action"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/config"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/neo4j"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/producer"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "neo4j-arrow-server",
		Short: "Serve Neo4j graph data over Apache Arrow Flight",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), verbose)
		},
	}
	cmd.Flags().BoolVar(&verbose, "verbose", false, "enable debug logging")
	return cmd
}

func run(ctx context.Context, verbose bool) error {
	log := logrus.New()
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	entry := logrus.NewEntry(log)

	cfg, err := config.Load()
	if err != nil {
		entry.WithError(err).Error("failed to load configuration")
		return err
	}

	driver, sink, err := dialNeo4j(cfg)
	if err != nil {
		entry.WithError(err).Error("failed to connect to neo4j")
		return err
	}

	handler := action.NewHandler(driver, sink)
	server := producer.New(producer.Config{
		MaxPartitions:     cfg.MaxPartitions,
		BatchSize:         cfg.ArrowBatchSize,
		FlushDrainTimeout: cfg.FlushDrainTimeout,
		RootMemCap:        cfg.MaxMemStream,
	}, handler, entry)

	lis, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("neo4j-arrow-server: listen on %s: %w", cfg.ListenAddr, err)
	}

	grpcServer := grpc.NewServer()
	flight.RegisterFlightServiceServer(grpcServer, server)

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		entry.WithField("addr", cfg.ListenAddr).Info("serving arrow flight")
		errCh <- grpcServer.Serve(lis)
	}()

	select {
	case <-sigCtx.Done():
		entry.Info("shutting down")
		grpcServer.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}

func dialNeo4j(cfg config.Config) (neo4j.Driver, neo4j.GraphSink, error) {
	ctx := context.Background()
	bolt, err := neo4j.NewBoltDriver(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, cfg.Neo4jDatabase, cfg.BoltFetchSize)
	if err != nil {
		return nil, nil, err
	}
	sink := neo4j.NewBoltSink(bolt.Raw(), cfg.Neo4jDatabase, cfg.ArrowBatchSize)
	return bolt, sink, nil
}
