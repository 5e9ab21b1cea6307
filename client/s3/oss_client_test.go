package s3

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	. "github.com/onsi/gomega"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/mocktracer"
)

func TestServiceErrorClassification(t *testing.T) {
	RegisterTestingT(t)

	Expect(IsNoSuchKey(oss.ServiceError{Code: "NoSuchKey"})).To(BeTrue())
	Expect(IsNoSuchKey(fmt.Errorf("read: %w", oss.ServiceError{StatusCode: http.StatusNotFound}))).To(BeTrue())
	Expect(IsNoSuchKey(errors.New("NoSuchKey"))).To(BeFalse())

	Expect(IsPreconditionFailed(oss.ServiceError{StatusCode: http.StatusPreconditionFailed})).To(BeTrue())
	Expect(IsPreconditionFailed(oss.ServiceError{Code: "FileAlreadyExists", StatusCode: http.StatusConflict})).To(BeTrue())
	Expect(IsPreconditionFailed(oss.ServiceError{Code: "NoSuchKey"})).To(BeFalse())
}

func TestObjectSpans(t *testing.T) {
	RegisterTestingT(t)

	Expect(startSpan(context.Background(), "get-object", "k")).To(BeNil())

	tracer := mocktracer.New()
	parent := tracer.StartSpan("request")
	sp := startSpan(opentracing.ContextWithSpan(context.Background(), parent), "get-object", "ledger.csv")
	Expect(sp).ToNot(BeNil())
	finishSpan(sp, errors.New("boom"))

	spans := tracer.FinishedSpans()
	Expect(len(spans)).To(Equal(1))
	Expect(spans[0].OperationName).To(Equal("get-object"))
	Expect(spans[0].Tag("object-key")).To(Equal("ledger.csv"))
	Expect(spans[0].Tag("error")).To(Equal(true))
}
