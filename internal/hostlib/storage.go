package hostlib

import (
	"database/sql"

	_ "modernc.org/sqlite"

	"github.com/tidelang/tide/internal/engine"
	"github.com/tidelang/tide/internal/value"
	"github.com/tidelang/tide/internal/vmerr"
)

// StoreClass is the registered name of the persistent key/value class.
const StoreClass = "Store"

// Options tunes the library at registration time.
type Options struct {
	// StorePath backs Store objects opened without an explicit path.
	// Empty selects an in-memory database.
	StorePath string
}

// store is the host payload behind a wrapped Store object.
type store struct {
	db *sql.DB
}

func openStore(path string) (*store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (k TEXT PRIMARY KEY, v TEXT NOT NULL)`); err != nil {
		db.Close()
		return nil, err
	}
	return &store{db: db}, nil
}

// RegisterStore installs the Store class and its method externs. Methods
// take the wrapped receiver as their first argument; a receiver of any
// other class fails with a ReceiverMismatch fault from Downcast.
func RegisterStore(e *engine.Engine, opts Options) {
	e.RegisterClass(&engine.ExternClass{
		Name: StoreClass,
		Construct: func(_ *engine.Engine, args []value.Value) (interface{}, error) {
			switch len(args) {
			case 0:
				path := opts.StorePath
				if path == "" {
					path = ":memory:"
				}
				return openStore(path)
			case 1:
				return openStore(args[0].Str())
			default:
				return nil, vmerr.Structuralf("Store: want at most 1 argument, have %d", len(args))
			}
		},
	})
	e.RegisterExtern("store_open", extStoreOpen)
	e.RegisterExtern("store_put", extStorePut)
	e.RegisterExtern("store_get", extStoreGet)
	e.RegisterExtern("store_delete", extStoreDelete)
	e.RegisterExtern("store_count", extStoreCount)
	e.RegisterExtern("store_close", extStoreClose)
}

func receiver(e *engine.Engine, args []value.Value) (*store, []value.Value) {
	if len(args) == 0 {
		panic(vmerr.ReceiverMismatchf("expected %s receiver, have none", StoreClass))
	}
	return e.Downcast(args[0], StoreClass).(*store), args[1:]
}

func extStoreOpen(e *engine.Engine, args []value.Value) (value.Value, error) {
	return e.Construct(StoreClass, args)
}

func extStorePut(e *engine.Engine, args []value.Value) (value.Value, error) {
	st, rest := receiver(e, args)
	if len(rest) != 2 {
		return value.Null(), vmerr.Structuralf("store_put: want key and value, have %d arguments", len(rest))
	}
	_, err := st.db.Exec(`INSERT INTO kv (k, v) VALUES (?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v`,
		rest[0].Str(), rest[1].Str())
	return value.Null(), err
}

// extStoreGet returns the stored string, or null when the key is absent.
func extStoreGet(e *engine.Engine, args []value.Value) (value.Value, error) {
	st, rest := receiver(e, args)
	if len(rest) != 1 {
		return value.Null(), vmerr.Structuralf("store_get: want a key, have %d arguments", len(rest))
	}
	var v string
	err := st.db.QueryRow(`SELECT v FROM kv WHERE k = ?`, rest[0].Str()).Scan(&v)
	if err == sql.ErrNoRows {
		return value.Null(), nil
	}
	if err != nil {
		return value.Null(), err
	}
	return value.Str(v), nil
}

// extStoreDelete reports whether the key existed.
func extStoreDelete(e *engine.Engine, args []value.Value) (value.Value, error) {
	st, rest := receiver(e, args)
	if len(rest) != 1 {
		return value.Null(), vmerr.Structuralf("store_delete: want a key, have %d arguments", len(rest))
	}
	res, err := st.db.Exec(`DELETE FROM kv WHERE k = ?`, rest[0].Str())
	if err != nil {
		return value.Null(), err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return value.Null(), err
	}
	return value.Bool(n > 0), nil
}

func extStoreCount(e *engine.Engine, args []value.Value) (value.Value, error) {
	st, _ := receiver(e, args)
	var n int32
	if err := st.db.QueryRow(`SELECT COUNT(*) FROM kv`).Scan(&n); err != nil {
		return value.Null(), err
	}
	return value.Int(n), nil
}

func extStoreClose(e *engine.Engine, args []value.Value) (value.Value, error) {
	st, _ := receiver(e, args)
	return value.Null(), st.db.Close()
}
