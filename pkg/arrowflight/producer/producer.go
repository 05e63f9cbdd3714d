// Package producer implements the Arrow Flight service surface: flight
// discovery, getStream (the read path), doPut (the write path), and
// doAction dispatch to the built-in handlers, per spec.md §4.7.
package producer

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/action"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/allocatortree"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/colstore"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/flighterrors"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/flush"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/job"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/partition"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/rowsource"
)

// deleteFlightAction is a producer-level action (not one of action.Handler's
// built-ins) that cancels an outstanding read job and drops its ticket.
const deleteFlightAction = "deleteFlight"

// Config holds the tunables that shape how the producer drives the
// partitioned builder pool and flush pipeline for each stream, per
// spec.md §6.
type Config struct {
	MaxPartitions     int
	BatchSize         int
	FlushDrainTimeout time.Duration
	RootMemCap        int64
}

// Server implements flight.FlightServer (embedding flight.BaseFlightServer
// for the methods this deployment doesn't override) over a single
// allocator root and action handler.
type Server struct {
	flight.BaseFlightServer

	cfg     Config
	root    *allocatortree.Node
	handler *action.Handler
	log     *logrus.Entry

	mu        sync.Mutex
	readJobs  map[job.Ticket]job.ReadJob
	writeJobs map[job.Ticket]*action.WriteJob
}

// New creates a Server with its own allocator root capped at
// cfg.RootMemCap (allocatortree.Unbounded for no cap).
func New(cfg Config, handler *action.Handler, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{
		cfg:       cfg,
		root:      allocatortree.NewRoot("flight-root", cfg.RootMemCap, memory.NewGoAllocator()),
		handler:   handler,
		log:       log,
		readJobs:  make(map[job.Ticket]job.ReadJob),
		writeJobs: make(map[job.Ticket]*action.WriteJob),
	}
}

// DoAction dispatches to the registered handler, minting a job and
// ticket for cypherRead/gdsNodeProperties/gdsRelProperties/gds.write.nodes,
// or answering status inline.
func (s *Server) DoAction(act *flight.Action, srv flight.FlightService_DoActionServer) error {
	switch act.Type {
	case action.Status:
		return srv.Send(&flight.Result{Body: []byte(`{"status":"ok"}`)})
	case action.CypherRead, action.GDSNodeProperties, action.GDSRelProperties:
		rj, err := s.handler.CreateReadJob(srv.Context(), act.Type, act.Body)
		if err != nil {
			return status.Error(flighterrors.Code(err), err.Error())
		}
		s.mu.Lock()
		s.readJobs[rj.Ticket()] = rj
		s.mu.Unlock()
		return srv.Send(&flight.Result{Body: rj.Ticket().Bytes()})
	case action.GDSWriteNodes:
		wj, err := s.handler.CreateWriteJob(srv.Context(), act.Type, act.Body, nil, s.cfg.BatchSize)
		if err != nil {
			return status.Error(flighterrors.Code(err), err.Error())
		}
		s.mu.Lock()
		s.writeJobs[wj.Ticket()] = wj
		s.mu.Unlock()
		return srv.Send(&flight.Result{Body: wj.Ticket().Bytes()})
	case deleteFlightAction:
		t, err := job.ParseTicket(act.Body)
		if err != nil {
			return status.Error(codes.InvalidArgument, err.Error())
		}
		s.DeleteFlight(t)
		return srv.Send(&flight.Result{Body: []byte(`{"status":"deleted"}`)})
	default:
		return status.Errorf(codes.NotFound, "producer: unknown action %q", act.Type)
	}
}

// ListActions reports the built-in action types.
func (s *Server) ListActions(_ *flight.Empty, srv flight.FlightService_ListActionsServer) error {
	names := append(append([]string{}, s.handler.Actions()...), deleteFlightAction)
	for _, name := range names {
		if err := srv.Send(&flight.ActionType{Type: name}); err != nil {
			return err
		}
	}
	return nil
}

// GetFlightInfo resolves a ticket into FlightInfo, pulling the job's
// first row to infer its schema if that hasn't happened yet.
func (s *Server) GetFlightInfo(_ context.Context, desc *flight.FlightDescriptor) (*flight.FlightInfo, error) {
	t, err := job.ParseTicket(desc.Cmd)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	s.mu.Lock()
	rj, ok := s.readJobs[t]
	s.mu.Unlock()
	if !ok {
		return nil, status.Errorf(codes.NotFound, "producer: unknown ticket %s", t)
	}
	schema, err := rj.Schema()
	if err != nil {
		return nil, status.Error(flighterrors.Code(err), err.Error())
	}
	return &flight.FlightInfo{
		Schema:           flight.SerializeSchema(schema, memory.NewGoAllocator()),
		FlightDescriptor: desc,
		Endpoint: []*flight.FlightEndpoint{{
			Ticket: &flight.Ticket{Ticket: t.Bytes()},
		}},
		TotalRecords: -1,
		TotalBytes:   -1,
	}, nil
}

// poolConsumer adapts a partition.Pool to job.RowConsumer.
type poolConsumer struct {
	pool *partition.Pool
}

func (c poolConsumer) Consume(row rowsource.Row, partitionKey int) {
	c.pool.Consume(row, partitionKey)
}

// GetStream drives a read job to completion: its rows feed a partitioned
// builder pool, which flushes full batches into a pipeline that writes
// LZ4-compressed record batches back to the client, per spec.md §4.7.
func (s *Server) GetStream(tkt *flight.Ticket, srv flight.FlightService_DoGetServer) error {
	t, err := job.ParseTicket(tkt.Ticket)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	s.mu.Lock()
	rj, ok := s.readJobs[t]
	s.mu.Unlock()
	if !ok {
		return status.Errorf(codes.NotFound, "producer: unknown ticket %s", t)
	}

	schema, err := rj.Schema()
	if err != nil {
		return status.Error(flighterrors.Code(err), err.Error())
	}

	ctx, cancel := context.WithCancel(srv.Context())
	defer cancel()

	recordWriter := flight.NewRecordWriter(srv, ipc.WithSchema(schema), ipc.WithCompressCodec(ipc.CompressionLZ4))
	defer recordWriter.Close()

	streamNode := s.root.NewChild(t.String()+"-stream", allocatortree.Unbounded)
	transmitNode := s.root.NewChild(t.String()+"-wire", allocatortree.Unbounded)
	defer func() { _ = streamNode.Close() }()
	defer func() { _ = transmitNode.Close() }()

	pipeline := flush.New(schema, flush.NewIPCWriter(recordWriter), s.log)
	transfer := &partition.TransferMutex{}
	pool := partition.New(schema, s.cfg.BatchSize, s.cfg.MaxPartitions, streamNode, transmitNode, transfer, pipeline)
	defer pool.Close()

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		pipeline.Run(egCtx)
		return pipeline.Err()
	})

	// Drive rows through the pool; Consume blocks until the underlying
	// result stream is exhausted or the job errors.
	consumeErr := rj.Consume(poolConsumer{pool})
	if errored, err := pool.Errored(); errored {
		consumeErr = err
	}
	if consumeErr == nil {
		consumeErr = pool.FlushStragglers()
	}
	pipeline.StopFeeding()

	if consumeErr != nil {
		cancel()
		<-pipeline.Done()
		return status.Error(flighterrors.Code(consumeErr), consumeErr.Error())
	}

	select {
	case <-pipeline.Done():
	case <-time.After(s.cfg.FlushDrainTimeout):
		cancel()
		<-pipeline.Done()
		return status.Error(codes.DeadlineExceeded, "producer: flush pipeline did not drain in time")
	}

	if err := eg.Wait(); err != nil {
		return status.Error(flighterrors.Code(err), err.Error())
	}
	if err := pipeline.Err(); err != nil {
		return status.Error(flighterrors.Code(err), err.Error())
	}
	return nil
}

// DoPut accepts a client's uploaded record batches into a column store
// and commits the result to the configured write job, per spec.md §4.7's
// write path and SPEC_FULL.md's GraphSink resolution.
func (s *Server) DoPut(srv flight.FlightService_DoPutServer) error {
	reader, err := flight.NewRecordReader(srv)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	defer reader.Release()

	desc := reader.LatestFlightDescriptor()
	var t job.Ticket
	if desc != nil {
		t, err = job.ParseTicket(desc.Cmd)
		if err != nil {
			return status.Error(codes.InvalidArgument, err.Error())
		}
	}
	s.mu.Lock()
	wj, ok := s.writeJobs[t]
	s.mu.Unlock()
	if !ok {
		return status.Errorf(codes.NotFound, "producer: unknown write ticket %s", t)
	}

	schema := reader.Schema()
	wj.SetSchema(schema)
	node := s.root.NewChild(t.String()+"-write", allocatortree.Unbounded)
	defer func() { _ = node.Close() }()

	store := colstore.NewStore(node, schema, s.cfg.BatchSize)
	defer func() { _ = store.Close() }()
	for reader.Next() {
		rec := reader.RecordBatch()
		if err := store.AppendBatch(rec); err != nil {
			return status.Error(flighterrors.Code(err), err.Error())
		}
	}
	if err := reader.Err(); err != nil && err != io.EOF {
		return status.Error(codes.Internal, err.Error())
	}

	wj.Commit(srv.Context(), store)
	if err := <-wj.Completion(); err != nil {
		return status.Error(flighterrors.Code(err), err.Error())
	}
	return srv.Send(&flight.PutResult{AppMetadata: t.Bytes()})
}

// ListFlights reports every outstanding read job's FlightInfo.
func (s *Server) ListFlights(_ *flight.Criteria, srv flight.FlightService_ListFlightsServer) error {
	s.mu.Lock()
	tickets := make([]job.Ticket, 0, len(s.readJobs))
	for t := range s.readJobs {
		tickets = append(tickets, t)
	}
	s.mu.Unlock()

	for _, t := range tickets {
		s.mu.Lock()
		rj := s.readJobs[t]
		s.mu.Unlock()
		schema, err := rj.Schema()
		if err != nil {
			continue
		}
		info := &flight.FlightInfo{
			Schema: flight.SerializeSchema(schema, memory.NewGoAllocator()),
			Endpoint: []*flight.FlightEndpoint{{
				Ticket: &flight.Ticket{Ticket: t.Bytes()},
			}},
			TotalRecords: -1,
			TotalBytes:   -1,
		}
		if err := srv.Send(info); err != nil {
			return err
		}
	}
	return nil
}

// DeleteFlight cancels and drops a read job, freeing its entry.
func (s *Server) DeleteFlight(t job.Ticket) {
	s.mu.Lock()
	rj, ok := s.readJobs[t]
	if ok {
		delete(s.readJobs, t)
	}
	s.mu.Unlock()
	if ok {
		rj.Cancel()
	}
}
