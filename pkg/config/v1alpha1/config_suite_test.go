package v1alpha1_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stevearc/worklock/pkg/config/v1alpha1"
	"github.com/stevearc/worklock/pkg/constants"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config Suite")
}

var _ = Describe("Lock Config", Label("unit"), func() {
	When("decoding config data", func() {
		It("should decode JSON", func() {
			config, err := v1alpha1.Decode([]byte(`{
				"backend": "redis",
				"redis": {"addrs": ["127.0.0.1:6379"], "db": 2}
			}`))
			Expect(err).To(Succeed())
			Expect(config.Backend).To(Equal(constants.RedisBackend))
			Expect(config.Redis.Addrs).To(ConsistOf("127.0.0.1:6379"))
			Expect(config.Redis.DB).To(Equal(2))
		})

		It("should decode TOML", func() {
			config, err := v1alpha1.Decode([]byte(`
backend = "file"

[file]
dir = "/tmp/locks"
`))
			Expect(err).To(Succeed())
			Expect(config.Backend).To(Equal(constants.FileBackend))
			Expect(config.LockDir()).To(Equal("/tmp/locks"))
		})

		It("should decode YAML", func() {
			config, err := v1alpha1.Decode([]byte(`
backend: etcd
etcd:
  endpoints:
    - 127.0.0.1:2379
  prefix: jobs
`))
			Expect(err).To(Succeed())
			Expect(config.Backend).To(Equal(constants.EtcdBackend))
			Expect(config.Etcd.Endpoints).To(ConsistOf("127.0.0.1:2379"))
			Expect(config.Etcd.Prefix).To(Equal("jobs"))
		})

		It("should reject data no decoder understands", func() {
			_, err := v1alpha1.Decode([]byte("{backend ="))
			Expect(err).To(HaveOccurred())
		})
	})

	When("validating a config", func() {
		It("should accept an empty backend selector", func() {
			Expect((&v1alpha1.LockConfig{}).Validate()).To(Succeed())
		})

		It("should reject an unrecognized backend", func() {
			err := (&v1alpha1.LockConfig{Backend: "consul"}).Validate()
			Expect(err).To(MatchError(ContainSubstring("unrecognized lock backend")))
		})

		It("should require redis addresses for the external alias", func() {
			err := (&v1alpha1.LockConfig{Backend: constants.ExternalBackend}).Validate()
			Expect(err).To(MatchError(ContainSubstring("redis address")))
		})

		It("should require etcd endpoints for the etcd backend", func() {
			err := (&v1alpha1.LockConfig{Backend: constants.EtcdBackend}).Validate()
			Expect(err).To(MatchError(ContainSubstring("etcd endpoint")))
		})
	})

	When("no lock directory is configured", func() {
		It("should fall back to the conventional runtime directory", func() {
			config := &v1alpha1.LockConfig{Backend: constants.FileBackend}
			Expect(config.LockDir()).To(Equal(constants.DefaultLockDir))
		})
	})
})
