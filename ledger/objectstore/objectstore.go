package objectstore

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"io/ioutil"
	"strconv"

	"teamflow/bizerror"
	"teamflow/client/s3"
	"teamflow/ledger"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/fundwit/go-commons/types"
)

// AbsentVersion version of a ledger whose object has not been written yet.
const AbsentVersion = "absent"

const readAttempts = 3

var requiredColumns = []string{"id", "documentRef", "category", "assignee", "createdAt"}

// Store keeps the whole ledger as one CSV object, the object ETag is the version.
type Store struct {
	Key string
}

func New(key string) *Store {
	return &Store{Key: key}
}

func (s *Store) Read(ctx context.Context) (ledger.Table, error) {
	var lastErr error
	for i := 0; i < readAttempts; i++ {
		etag, err := s.currentVersion(ctx)
		if err != nil {
			return ledger.Table{}, err
		}
		if etag == AbsentVersion {
			return ledger.Table{Version: AbsentVersion}, nil
		}

		// the object may be replaced between the two requests
		body, err := s3.GetObjectFunc(ctx, s.Key, oss.IfMatch(etag))
		if s3.IsPreconditionFailed(err) || s3.IsNoSuchKey(err) {
			lastErr = err
			continue
		}
		if err != nil {
			return ledger.Table{}, err
		}
		data, err := ioutil.ReadAll(body)
		_ = body.Close()
		if err != nil {
			return ledger.Table{}, err
		}
		rows, err := decodeCSV(data)
		if err != nil {
			return ledger.Table{}, err
		}
		return ledger.Table{Rows: rows, Version: etag}, nil
	}
	return ledger.Table{}, fmt.Errorf("object %s kept changing while being read: %w", s.Key, lastErr)
}

func (s *Store) WriteAll(ctx context.Context, rows []ledger.Row, expectedVersion string) (string, error) {
	data, err := encodeCSV(rows)
	if err != nil {
		return "", err
	}

	var opts []oss.Option
	if expectedVersion != ledger.AnyVersion {
		current, err := s.currentVersion(ctx)
		if err != nil {
			return "", err
		}
		if current != expectedVersion {
			return "", fmt.Errorf("%w: expected %s, found %s", bizerror.ErrConflict, expectedVersion, current)
		}
		if current == AbsentVersion {
			opts = append(opts, oss.ForbidOverWrite(true))
		}
	}

	header, err := s3.PutObjectFunc(ctx, s.Key, bytes.NewReader(data), opts...)
	if s3.IsPreconditionFailed(err) {
		return "", fmt.Errorf("%w: object %s was created concurrently", bizerror.ErrConflict, s.Key)
	}
	if err != nil {
		if s3.IsServiceError(err) {
			return "", err
		}
		// the request may have been stored before the connection failed
		return "", fmt.Errorf("%w: put %s: %v", ledger.ErrOutcomeUnknown, s.Key, err)
	}
	etag := header.Get("Etag")
	if etag == "" {
		return "", fmt.Errorf("%w: put %s returned no etag", ledger.ErrOutcomeUnknown, s.Key)
	}
	return etag, nil
}

func (s *Store) currentVersion(ctx context.Context) (string, error) {
	meta, err := s3.GetObjectMetaFunc(ctx, s.Key)
	if s3.IsNoSuchKey(err) {
		return AbsentVersion, nil
	}
	if err != nil {
		return "", err
	}
	etag := meta.Get("Etag")
	if etag == "" {
		return "", fmt.Errorf("object %s has no etag", s.Key)
	}
	return etag, nil
}

func encodeCSV(rows []ledger.Row) ([]byte, error) {
	buf := bytes.Buffer{}
	w := csv.NewWriter(&buf)
	if err := w.Write(ledger.Columns); err != nil {
		return nil, err
	}
	for _, r := range rows {
		record := []string{
			strconv.FormatUint(uint64(r.ID), 10), r.DocumentRef, r.Category, r.Assignee, r.CreatedAt,
			r.WorkClass, strconv.FormatFloat(r.Amount, 'f', -1, 64), r.PaymentStatus, r.Priority,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// decodeCSV accepts the columns in any order; workClass, amount, paymentStatus and
// priority may be missing.
func decodeCSV(data []byte) ([]ledger.Row, error) {
	r := csv.NewReader(bytes.NewReader(data))
	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	index := map[string]int{}
	for i, name := range header {
		index[name] = i
	}
	for _, name := range requiredColumns {
		if _, found := index[name]; !found {
			return nil, fmt.Errorf("ledger object misses column '%s'", name)
		}
	}
	r.FieldsPerRecord = len(header)

	var rows []ledger.Row
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		get := func(name string) string {
			if i, found := index[name]; found {
				return record[i]
			}
			return ""
		}

		id, err := strconv.ParseUint(get("id"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id '%s'", get("id"))
		}
		amount := 0.0
		if v := get("amount"); v != "" {
			if amount, err = strconv.ParseFloat(v, 64); err != nil {
				return nil, fmt.Errorf("row %d: invalid amount '%s'", id, v)
			}
		}
		rows = append(rows, ledger.Row{
			ID: types.ID(id), DocumentRef: get("documentRef"), Category: get("category"), Assignee: get("assignee"),
			CreatedAt: get("createdAt"), WorkClass: get("workClass"), Amount: amount,
			PaymentStatus: get("paymentStatus"), Priority: get("priority"),
		})
	}
	return rows, nil
}
