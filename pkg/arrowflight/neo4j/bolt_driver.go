package neo4j

import (
	"context"

	boltdriver "github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/flighterrors"
)

// BoltDriver adapts the official Neo4j Bolt driver to the package's
// narrow Driver contract, the only concrete Driver implementation this
// repository ships.
type BoltDriver struct {
	driver   boltdriver.DriverWithContext
	database string
	fetch    int
}

// NewBoltDriver opens a connection pool against uri, authenticating with
// user/password. fetchSize controls how many rows Bolt buffers per
// network round trip (config.BoltFetchSize).
func NewBoltDriver(ctx context.Context, uri, user, password, database string, fetchSize int) (*BoltDriver, error) {
	d, err := boltdriver.NewDriverWithContext(uri, boltdriver.BasicAuth(user, password, ""))
	if err != nil {
		return nil, flighterrors.Wrap(err, flighterrors.ErrInternal, "neo4j: open driver")
	}
	if err := d.VerifyConnectivity(ctx); err != nil {
		return nil, flighterrors.Wrap(err, flighterrors.ErrInternal, "neo4j: verify connectivity")
	}
	return &BoltDriver{driver: d, database: database, fetch: fetchSize}, nil
}

func (b *BoltDriver) Run(ctx context.Context, cypher string, params map[string]interface{}) (ResultStream, error) {
	session := b.driver.NewSession(ctx, boltdriver.SessionConfig{
		DatabaseName: b.database,
		FetchSize:    b.fetch,
	})
	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		session.Close(ctx)
		return nil, flighterrors.Wrap(err, flighterrors.ErrInternal, "neo4j: run query")
	}
	return &boltResultStream{session: session, result: result}, nil
}

func (b *BoltDriver) Close(ctx context.Context) error {
	return b.driver.Close(ctx)
}

// Raw exposes the underlying driver pool so a BoltSink can share the same
// connections for the write path instead of opening a second pool.
func (b *BoltDriver) Raw() boltdriver.DriverWithContext {
	return b.driver
}

type boltResultStream struct {
	session boltdriver.SessionWithContext
	result  boltdriver.ResultWithContext
	record  *boltdriver.Record
	err     error
}

func (s *boltResultStream) Next(ctx context.Context) bool {
	if s.result.Next(ctx) {
		s.record = s.result.Record()
		return true
	}
	s.err = s.result.Err()
	return false
}

func (s *boltResultStream) Values() map[string]interface{} {
	return s.record.AsMap()
}

func (s *boltResultStream) Err() error {
	if s.err == nil {
		return nil
	}
	return flighterrors.Wrap(s.err, flighterrors.ErrInternal, "neo4j: result stream")
}

func (s *boltResultStream) Close() error {
	return s.session.Close(context.Background())
}
