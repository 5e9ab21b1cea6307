package objectstore_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"sync"
	"testing"
	"time"

	"teamflow/bizerror"
	"teamflow/client/s3"
	"teamflow/domain"
	"teamflow/ledger"
	"teamflow/ledger/ledgertest"
	"teamflow/ledger/objectstore"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	. "github.com/onsi/gomega"
)

type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	etags   map[string]string
	puts    int
}

func installFakeBucket() *fakeBucket {
	b := &fakeBucket{objects: map[string][]byte{}, etags: map[string]string{}}
	s3.GetObjectMetaFunc = func(ctx context.Context, key string, o ...oss.Option) (http.Header, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		etag, found := b.etags[key]
		if !found {
			return nil, oss.ServiceError{Code: "NoSuchKey", StatusCode: http.StatusNotFound}
		}
		h := http.Header{}
		h.Set("Etag", etag)
		return h, nil
	}
	s3.GetObjectFunc = func(ctx context.Context, key string, o ...oss.Option) (io.ReadCloser, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		data, found := b.objects[key]
		if !found {
			return nil, oss.ServiceError{Code: "NoSuchKey", StatusCode: http.StatusNotFound}
		}
		return ioutil.NopCloser(bytes.NewReader(data)), nil
	}
	s3.PutObjectFunc = func(ctx context.Context, key string, r io.Reader, o ...oss.Option) (http.Header, error) {
		data, err := ioutil.ReadAll(r)
		if err != nil {
			return nil, err
		}
		h := http.Header{}
		h.Set("Etag", b.store(key, data))
		return h, nil
	}
	return b
}

func (b *fakeBucket) store(key string, data []byte) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.puts++
	b.objects[key] = data
	b.etags[key] = fmt.Sprintf("\"etag-%d\"", b.puts)
	return b.etags[key]
}

func (b *fakeBucket) put(key, content string) {
	b.store(key, []byte(content))
}

func (b *fakeBucket) content(key string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.objects[key])
}

func TestObjectStore(t *testing.T) {
	RegisterTestingT(t)

	row := ledger.Row{ID: 11, DocumentRef: "doc,1", Category: "NewWork", Assignee: "A", CreatedAt: "2024-03-05 10:20:30",
		WorkClass: "Essay", Amount: 12.5, PaymentStatus: "Pending", Priority: "High"}

	t.Run("should read absent object as empty ledger", func(t *testing.T) {
		installFakeBucket()
		table, err := objectstore.New("ledger.csv").Read(context.Background())
		Expect(err).To(BeNil())
		Expect(table.Rows).To(BeEmpty())
		Expect(table.Version).To(Equal(objectstore.AbsentVersion))
	})

	t.Run("should write and read back rows", func(t *testing.T) {
		bucket := installFakeBucket()
		store := objectstore.New("ledger.csv")

		version, err := store.WriteAll(context.Background(), []ledger.Row{row}, objectstore.AbsentVersion)
		Expect(err).To(BeNil())
		Expect(version).To(Equal("\"etag-1\""))
		Expect(bucket.content("ledger.csv")).To(Equal(
			"id,documentRef,category,assignee,createdAt,workClass,amount,paymentStatus,priority\n" +
				"11,\"doc,1\",NewWork,A,2024-03-05 10:20:30,Essay,12.5,Pending,High\n"))

		table, err := store.Read(context.Background())
		Expect(err).To(BeNil())
		Expect(table).To(Equal(ledger.Table{Rows: []ledger.Row{row}, Version: "\"etag-1\""}))
	})

	t.Run("should reject write based on stale version", func(t *testing.T) {
		bucket := installFakeBucket()
		store := objectstore.New("ledger.csv")
		_, err := store.WriteAll(context.Background(), []ledger.Row{row}, objectstore.AbsentVersion)
		Expect(err).To(BeNil())

		_, err = store.WriteAll(context.Background(), nil, objectstore.AbsentVersion)
		Expect(errors.Is(err, bizerror.ErrConflict)).To(BeTrue())
		Expect(bucket.puts).To(Equal(1))

		version, err := store.WriteAll(context.Background(), nil, ledger.AnyVersion)
		Expect(err).To(BeNil())
		Expect(version).To(Equal("\"etag-2\""))
	})

	t.Run("should accept objects with reordered and missing optional columns", func(t *testing.T) {
		bucket := installFakeBucket()
		bucket.put("ledger.csv", "assignee,id,category,documentRef,createdAt\nB,7,Revision,doc-7,2024-01-02 03:04:05\n")

		l := ledgertest.MustNew(objectstore.New("ledger.csv"), ledger.DefaultConfig())
		s, err := l.ReadAll(context.Background())
		Expect(err).To(BeNil())
		Expect(s.Records).To(Equal([]domain.AssignmentRecord{{
			ID: 7, DocumentRef: "doc-7", Category: domain.CategoryRevision, Assignee: "B",
			CreatedAt:     time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local),
			PaymentStatus: domain.PaymentNotApplicable, Priority: domain.PriorityNormal,
		}}))
	})

	t.Run("should fail on objects missing required columns", func(t *testing.T) {
		bucket := installFakeBucket()
		bucket.put("ledger.csv", "id,category\n7,Revision\n")

		_, err := objectstore.New("ledger.csv").Read(context.Background())
		Expect(err).To(MatchError("ledger object misses column 'documentRef'"))
	})

	t.Run("should report bucket failures", func(t *testing.T) {
		installFakeBucket()
		s3.GetObjectMetaFunc = func(ctx context.Context, key string, o ...oss.Option) (http.Header, error) {
			return nil, oss.ServiceError{Code: "AccessDenied", StatusCode: http.StatusForbidden}
		}
		_, err := objectstore.New("ledger.csv").Read(context.Background())
		Expect(err).ToNot(BeNil())
		Expect(s3.IsNoSuchKey(err)).To(BeFalse())
	})
}

func TestObjectStoreWriteOutcome(t *testing.T) {
	RegisterTestingT(t)

	compose := func(l *ledger.Ledger) func(ledger.Snapshot) (domain.AssignmentRecord, error) {
		return func(ledger.Snapshot) (domain.AssignmentRecord, error) {
			return domain.AssignmentRecord{ID: l.NextID(), DocumentRef: "d", Category: domain.CategoryNewWork,
				Assignee: "A", CreatedAt: time.Now()}, nil
		}
	}

	t.Run("should take the version from the put response", func(t *testing.T) {
		bucket := installFakeBucket()
		stored := s3.PutObjectFunc
		s3.PutObjectFunc = func(ctx context.Context, key string, r io.Reader, o ...oss.Option) (http.Header, error) {
			h, err := stored(ctx, key, r, o...)
			// another writer lands right after this put, and metadata is unreachable
			bucket.put(key, "id,documentRef,category,assignee,createdAt\n")
			s3.GetObjectMetaFunc = func(ctx context.Context, key string, o ...oss.Option) (http.Header, error) {
				return nil, errors.New("connection reset")
			}
			return h, err
		}

		l := ledgertest.MustNew(objectstore.New("ledger.csv"), ledger.DefaultConfig())
		var notified ledger.Snapshot
		l.OnChange(func(s ledger.Snapshot) { notified = s })

		created, err := l.Append(context.Background(), compose(l))
		Expect(err).To(BeNil())
		Expect(created.Assignee).To(Equal("A"))
		Expect(notified.Version).To(Equal("\"etag-1\""))
	})

	t.Run("should report a put interrupted in transit as ambiguous", func(t *testing.T) {
		bucket := installFakeBucket()
		stored := s3.PutObjectFunc
		s3.PutObjectFunc = func(ctx context.Context, key string, r io.Reader, o ...oss.Option) (http.Header, error) {
			if _, err := stored(ctx, key, r, o...); err != nil {
				return nil, err
			}
			return nil, errors.New("connection reset")
		}

		l := ledgertest.MustNew(objectstore.New("ledger.csv"), ledger.DefaultConfig())
		_, err := l.Append(context.Background(), compose(l))

		var persistenceErr *bizerror.ErrPersistence
		Expect(errors.As(err, &persistenceErr)).To(BeTrue())
		Expect(persistenceErr.Ambiguous).To(BeTrue())
		Expect(errors.Is(err, ledger.ErrOutcomeUnknown)).To(BeTrue())
		Expect(bucket.content("ledger.csv")).To(ContainSubstring(",d,NewWork,A,"))
	})

	t.Run("should report a put refused by the service as failed", func(t *testing.T) {
		bucket := installFakeBucket()
		s3.PutObjectFunc = func(ctx context.Context, key string, r io.Reader, o ...oss.Option) (http.Header, error) {
			return nil, oss.ServiceError{Code: "AccessDenied", StatusCode: http.StatusForbidden}
		}

		l := ledgertest.MustNew(objectstore.New("ledger.csv"), ledger.DefaultConfig())
		_, err := l.Append(context.Background(), compose(l))

		var persistenceErr *bizerror.ErrPersistence
		Expect(errors.As(err, &persistenceErr)).To(BeTrue())
		Expect(persistenceErr.Ambiguous).To(BeFalse())
		Expect(bucket.content("ledger.csv")).To(BeEmpty())
	})

	t.Run("should treat a put without etag as ambiguous", func(t *testing.T) {
		installFakeBucket()
		stored := s3.PutObjectFunc
		s3.PutObjectFunc = func(ctx context.Context, key string, r io.Reader, o ...oss.Option) (http.Header, error) {
			_, err := stored(ctx, key, r, o...)
			return http.Header{}, err
		}

		_, err := objectstore.New("ledger.csv").WriteAll(context.Background(), nil, ledger.AnyVersion)
		Expect(errors.Is(err, ledger.ErrOutcomeUnknown)).To(BeTrue())
	})
}
