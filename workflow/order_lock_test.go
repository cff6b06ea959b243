package workflow

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/farmdirect/marketplace_backend/utils"
	mysqldriver "gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// namedLockDriver mimics MySQL advisory lock semantics: a lock belongs
// to the connection that acquired it, GET_LOCK on the holding
// connection succeeds again, and RELEASE_LOCK from any other connection
// returns 0. Tests run withOrderLock against it through a real
// connection pool so that session pinning is actually exercised.
type namedLockDriver struct {
	mu      sync.Mutex
	nextId  int
	holders map[string]int
}

func newNamedLockDriver() *namedLockDriver {
	return &namedLockDriver{holders: map[string]int{}}
}

func (d *namedLockDriver) Open(string) (driver.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextId++
	return &namedLockConn{d: d, id: d.nextId}, nil
}

func (d *namedLockDriver) Connect(context.Context) (driver.Conn, error) { return d.Open("") }
func (d *namedLockDriver) Driver() driver.Driver                        { return d }

type namedLockConn struct {
	d  *namedLockDriver
	id int
}

func (c *namedLockConn) Prepare(query string) (driver.Stmt, error) {
	return nil, fmt.Errorf("prepare not supported: %s", query)
}

func (c *namedLockConn) Begin() (driver.Tx, error) {
	return nil, fmt.Errorf("transactions not supported")
}

func (c *namedLockConn) Close() error {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	for name, holder := range c.d.holders {
		if holder == c.id {
			delete(c.d.holders, name)
		}
	}
	return nil
}

func (c *namedLockConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	switch {
	case strings.Contains(query, "GET_LOCK"):
		name := args[0].Value.(string)
		holder, held := c.d.holders[name]
		if !held || holder == c.id {
			c.d.holders[name] = c.id
			return &singleIntRows{value: 1}, nil
		}
		// a real server would block up to the timeout first
		return &singleIntRows{value: 0}, nil
	case strings.Contains(query, "RELEASE_LOCK"):
		name := args[0].Value.(string)
		if holder, held := c.d.holders[name]; held && holder == c.id {
			delete(c.d.holders, name)
			return &singleIntRows{value: 1}, nil
		}
		return &singleIntRows{value: 0}, nil
	}
	return nil, fmt.Errorf("unexpected query: %s", query)
}

type singleIntRows struct {
	value int64
	done  bool
}

func (r *singleIntRows) Columns() []string { return []string{"v"} }
func (r *singleIntRows) Close() error      { return nil }
func (r *singleIntRows) Next(dest []driver.Value) error {
	if r.done {
		return io.EOF
	}
	r.done = true
	dest[0] = r.value
	return nil
}

func openNamedLockDB(t *testing.T) (*gorm.DB, *namedLockDriver) {
	t.Helper()
	d := newNamedLockDriver()
	sqlDB := sql.OpenDB(d)
	db, err := gorm.Open(mysqldriver.New(mysqldriver.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DisableAutomaticPing: true})
	if err != nil {
		t.Fatalf("open stub db: %v", err)
	}
	return db, d
}

func TestWithOrderLockSerializesAcrossPooledConnections(t *testing.T) {
	db, _ := openNamedLockDB(t)
	ctx := context.Background()

	entered := make(chan struct{})
	finish := make(chan struct{})
	firstErr := make(chan error, 1)
	go func() {
		firstErr <- withOrderLock(db, ctx, 42, func() error {
			close(entered)
			<-finish
			return nil
		})
	}()

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first caller never acquired the lock")
	}

	// While the first caller holds the lock, a second caller over the
	// same pool must not reach the critical section.
	ran := false
	err := withOrderLock(db, ctx, 42, func() error {
		ran = true
		return nil
	})
	if ran {
		t.Fatal("second caller entered the critical section while the lock was held")
	}
	if !utils.IsConcurrencyConflictError(err) {
		t.Fatalf("expected ConcurrencyConflictError, got %v", err)
	}

	// A different order is an independent lock.
	otherRan := false
	if err := withOrderLock(db, ctx, 7, func() error {
		otherRan = true
		return nil
	}); err != nil || !otherRan {
		t.Fatalf("independent order lock failed: ran=%v err=%v", otherRan, err)
	}

	close(finish)
	if err := <-firstErr; err != nil {
		t.Fatalf("first caller: %v", err)
	}

	// Once released, the lock can be taken again.
	reRan := false
	if err := withOrderLock(db, ctx, 42, func() error {
		reRan = true
		return nil
	}); err != nil || !reRan {
		t.Fatalf("reacquire after release failed: ran=%v err=%v", reRan, err)
	}
}

func TestWithOrderLockReleasesOnCallbackError(t *testing.T) {
	db, d := openNamedLockDB(t)
	ctx := context.Background()

	wantErr := fmt.Errorf("boom")
	if err := withOrderLock(db, ctx, 9, func() error { return wantErr }); err != wantErr {
		t.Fatalf("expected callback error through, got %v", err)
	}

	d.mu.Lock()
	_, held := d.holders["order:9"]
	d.mu.Unlock()
	if held {
		t.Fatal("lock still held after the callback returned an error")
	}
}
