package internal

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func TestInspector_Lists_Keys_Under_Prefix(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	// Given two archived messages and an unrelated key
	req.NoError(db.Update(func(txn *badger.Txn) error {
		for _, k := range []string{
			"msg:Z2VuZXJhbA:0000000000000000001:first",
			"msg:Z2VuZXJhbA:0000000000000000002:second",
			"other:key",
		} {
			if err := txn.Set([]byte(k), []byte("value")); err != nil {
				return err
			}
		}
		return nil
	}))
	stats := func() map[string]any { return map[string]any{"Mode": "test"} }
	inspector := NewInspector(db, nil, stats)

	// When scanning the default prefix
	w := httptest.NewRecorder()
	inspector.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/inspect", nil))

	// Then only message keys are listed
	req.Equal(http.StatusOK, w.Code)
	body := w.Body.String()
	req.Contains(body, "2 keys")
	req.Contains(body, "first")
	req.Contains(body, "second")
	req.NotContains(body, "other:key")
	req.Contains(body, "Mode")

	// When limiting the scan
	w = httptest.NewRecorder()
	inspector.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/inspect?limit=1", nil))
	req.Contains(w.Body.String(), "1 keys")
}

func TestDefaultMapper(t *testing.T) {
	req := require.New(t)
	at := time.Date(2025, 1, 1, 10, 11, 12, 0, time.UTC)

	row := DefaultMapper("msg:Z2VuZXJhbA:"+padded(at)+":0123456789", []byte("abc"))

	req.Equal("Z2VuZXJhbA", row.Namespace)
	req.Equal("10:11:12", row.Timestamp)
	req.Equal("01234567", row.EntityID)
	req.Equal("Size: 3 bytes", row.Detail)

	raw := DefaultMapper("garbage", nil)
	req.Equal("RAW", raw.Type)
	req.Equal("default", raw.Namespace)
}

func padded(at time.Time) string {
	s := []byte("0000000000000000000")
	n := at.UnixNano()
	for i := len(s) - 1; n > 0; i-- {
		s[i] = byte('0' + n%10)
		n /= 10
	}
	return string(s)
}
