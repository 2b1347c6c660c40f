package v1alpha1

type RedisClientSpec struct {
	// Redis node addresses. More than one address runs the acquisition
	// protocol against every node and requires quorum agreement.
	Addrs []string `json:"addrs,omitempty" toml:"addrs" yaml:"addrs"`
	// Network to dial, "tcp" or "unix". Defaults to "tcp".
	Network  string `json:"network,omitempty" toml:"network" yaml:"network"`
	Username string `json:"username,omitempty" toml:"username" yaml:"username"`
	Password string `json:"password,omitempty" toml:"password" yaml:"password"`
	DB       int    `json:"db,omitempty" toml:"db" yaml:"db"`
}
