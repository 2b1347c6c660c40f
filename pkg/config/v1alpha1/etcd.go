package v1alpha1

type EtcdClientSpec struct {
	// List of etcd endpoints to connect to.
	Endpoints []string `json:"endpoints,omitempty" toml:"endpoints" yaml:"endpoints"`
	Username  string   `json:"username,omitempty" toml:"username" yaml:"username"`
	Password  string   `json:"password,omitempty" toml:"password" yaml:"password"`
	// Dial timeout in seconds. Defaults to 5.
	DialTimeoutSeconds int `json:"dialTimeoutSeconds,omitempty" toml:"dialTimeoutSeconds" yaml:"dialTimeoutSeconds"`
	// Key prefix for all locks held through this client. Defaults to "lock".
	Prefix string `json:"prefix,omitempty" toml:"prefix" yaml:"prefix"`
}
