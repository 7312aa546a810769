package common

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerTransportConfig holds the transport-level settings of the server.
// The TCP fields are ignored by transports that are not TCP based.
type ServerTransportConfig struct {
	// Endpoint to listen on (e.g. "localhost:8080" or a socket path)
	Endpoint string

	// Socket buffer sizes in bytes (0 keeps the OS default)
	WriteBufferSize int
	ReadBufferSize  int

	// TCP specific settings
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
}

// ServerConfig holds all configuration parameters for the lock server.
type ServerConfig struct {
	// Shards lists the shard IDs this server hosts. Each shard is backed
	// by its own independent lock table.
	Shards []uint64

	// Read/write timeout for client connections
	TimeoutSecond int64

	// Lock table maintenance parameters
	LockTTLSecond       int64
	SweepIntervalSecond int64

	// HTTP endpoint for prometheus metrics (empty disables metrics)
	MetricsEndpoint string

	// Logging configuration
	LogLevel string

	// Transport settings
	Transport ServerTransportConfig
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))

	// Lock table settings
	addSection("Lock Table")
	addField("Lock TTL", fmt.Sprintf("%d sec", c.LockTTLSecond))
	addField("Sweep Interval", fmt.Sprintf("%d sec", c.SweepIntervalSecond))

	// Shards
	addSection("Shards")
	for _, shardID := range c.Shards {
		addField(strconv.FormatUint(shardID, 10), "local lock table")
	}

	// Metrics
	addSection("Metrics")
	if c.MetricsEndpoint != "" {
		addField("Endpoint", c.MetricsEndpoint)
	} else {
		addField("Endpoint", "disabled")
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// ClientTransportConfig holds the transport-level settings of the client.
// The TCP fields are ignored by transports that are not TCP based.
type ClientTransportConfig struct {
	// Endpoints of the lock servers to connect to
	Endpoints []string

	// Number of parallel connections per endpoint (defaults to 1)
	ConnectionsPerEndpoint int

	// Number of send attempts before giving up (defaults to 1)
	RetryCount int

	// Socket buffer sizes in bytes (0 keeps the OS default)
	WriteBufferSize int
	ReadBufferSize  int

	// TCP specific settings
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
}

// ClientConfig holds all configuration parameters for the RPC client.
type ClientConfig struct {
	// Timeout for a single request in seconds
	TimeoutSecond int

	// Transport settings
	Transport ClientTransportConfig
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.Transport.RetryCount))
	addField("Connections Per Endpoint", strconv.Itoa(int(math.Max(1, float64(c.Transport.ConnectionsPerEndpoint)))))

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Transport.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
