package sqlserver

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strconv"
	"sync"
	"sync/atomic"
)

// fakeSource は database/sql 経由で抽出元を模倣するテスト用ドライバです。
type fakeSource struct {
	mu      sync.Mutex
	columns []string
	rows    [][]driver.Value
	err     error
	block   bool
	calls   atomic.Int32
	args    []driver.NamedValue
}

var (
	fakeSeq     atomic.Int64
	fakeSources sync.Map
)

func openFake(src *fakeSource) *sql.DB {
	name := "fake-" + strconv.FormatInt(fakeSeq.Add(1), 10)
	fakeSources.Store(name, src)
	return sql.OpenDB(fakeConnector{name: name})
}

type fakeConnector struct {
	name string
}

func (c fakeConnector) Connect(context.Context) (driver.Conn, error) {
	v, _ := fakeSources.Load(c.name)
	return &fakeConn{src: v.(*fakeSource)}, nil
}

func (c fakeConnector) Driver() driver.Driver {
	return fakeDriver{}
}

type fakeDriver struct{}

func (fakeDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("use connector")
}

type fakeConn struct {
	src *fakeSource
}

func (c *fakeConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) Begin() (driver.Tx, error) {
	return nil, errors.New("transactions not supported")
}

func (c *fakeConn) CheckNamedValue(*driver.NamedValue) error { return nil }

func (c *fakeConn) QueryContext(ctx context.Context, _ string, args []driver.NamedValue) (driver.Rows, error) {
	c.src.calls.Add(1)
	c.src.mu.Lock()
	c.src.args = args
	block, err := c.src.block, c.src.err
	columns, rows := c.src.columns, c.src.rows
	c.src.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return &fakeRows{columns: columns, rows: rows}, nil
}

type fakeRows struct {
	columns []string
	rows    [][]driver.Value
	pos     int
}

func (r *fakeRows) Columns() []string { return r.columns }

func (r *fakeRows) Close() error { return nil }

func (r *fakeRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.pos])
	r.pos++
	return nil
}
