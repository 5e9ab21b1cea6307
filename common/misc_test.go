package common_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"teamflow/common"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Env", func() {
	AfterEach(func() {
		Expect(os.Unsetenv("TEAMFLOW_TEST_ENV")).To(BeNil())
	})

	Describe("EnvOrDefault", func() {
		It("should return default value when variable is blank", func() {
			Expect(os.Setenv("TEAMFLOW_TEST_ENV", "  ")).To(BeNil())
			Expect(common.EnvOrDefault("TEAMFLOW_TEST_ENV", "fallback")).To(Equal("fallback"))
		})
		It("should return trimmed value when variable is set", func() {
			Expect(os.Setenv("TEAMFLOW_TEST_ENV", " value ")).To(BeNil())
			Expect(common.EnvOrDefault("TEAMFLOW_TEST_ENV", "fallback")).To(Equal("value"))
		})
	})

	Describe("EnvDuration", func() {
		It("should accept bare seconds and duration strings", func() {
			d, err := common.EnvDuration("TEAMFLOW_TEST_ENV", 3*time.Second)
			Expect(err).To(BeNil())
			Expect(d).To(Equal(3 * time.Second))

			Expect(os.Setenv("TEAMFLOW_TEST_ENV", "7")).To(BeNil())
			d, err = common.EnvDuration("TEAMFLOW_TEST_ENV", 3*time.Second)
			Expect(err).To(BeNil())
			Expect(d).To(Equal(7 * time.Second))

			Expect(os.Setenv("TEAMFLOW_TEST_ENV", "250ms")).To(BeNil())
			d, err = common.EnvDuration("TEAMFLOW_TEST_ENV", 3*time.Second)
			Expect(err).To(BeNil())
			Expect(d).To(Equal(250 * time.Millisecond))
		})
		It("should reject malformed duration", func() {
			Expect(os.Setenv("TEAMFLOW_TEST_ENV", "soon")).To(BeNil())
			_, err := common.EnvDuration("TEAMFLOW_TEST_ENV", time.Second)
			Expect(err).ToNot(BeNil())
		})
	})

	Describe("EnvInt", func() {
		It("should parse integer or fail", func() {
			i, err := common.EnvInt("TEAMFLOW_TEST_ENV", 2)
			Expect(err).To(BeNil())
			Expect(i).To(Equal(2))

			Expect(os.Setenv("TEAMFLOW_TEST_ENV", "x")).To(BeNil())
			_, err = common.EnvInt("TEAMFLOW_TEST_ENV", 2)
			Expect(err).ToNot(BeNil())
		})
	})
})

var _ = Describe("BindingPathID", func() {
	It("should parse id from path and reject invalid id", func() {
		var got types.ID
		var gotErr error
		router := gin.New()
		router.GET("/items/:id", func(c *gin.Context) {
			got, gotErr = common.BindingPathID(c)
			c.Status(http.StatusOK)
		})

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/123", nil))
		Expect(gotErr).To(BeNil())
		Expect(got).To(Equal(types.ID(123)))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/abc", nil))
		Expect(gotErr).ToNot(BeNil())
		Expect(gotErr.Error()).To(Equal("invalid id 'abc'"))
	})
})

var _ = Describe("DefaultFieldsHook", func() {
	It("should attach service fields to every entry", func() {
		Expect(os.Setenv("SERVICE_INSTANCE", "instance-1")).To(BeNil())
		defer os.Unsetenv("SERVICE_INSTANCE")

		entry := logrus.NewEntry(logrus.New())
		Expect((&common.DefaultFieldsHook{}).Fire(entry)).To(BeNil())
		Expect(entry.Data["serviceName"]).To(Equal("teamflow"))
		Expect(entry.Data["serviceInstance"]).To(Equal("instance-1"))
	})
})
