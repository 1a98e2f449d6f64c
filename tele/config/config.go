// Separate package is workaround to import cycles.
package tele_config

type Config struct { //nolint:maligned
	Broker            string `hcl:"broker"`
	Username          string `hcl:"username"`
	Password          string `hcl:"password"` // secret
	ClientID          string `hcl:"client_id"`
	DiscoveryPrefix   string `hcl:"discovery_prefix"`
	KeepaliveSec      int    `hcl:"keepalive_sec"`
	ConnectTimeoutSec int    `hcl:"connect_timeout_sec"`
	PublishTimeoutSec int    `hcl:"publish_timeout_sec"`
	RetryDelaySec     int    `hcl:"retry_delay_sec"`
	LogDebug          bool   `hcl:"log_debug"`
}
