package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/quorlock/quorlock/lib/locker"
	"github.com/quorlock/quorlock/rpc/common"
	"github.com/quorlock/quorlock/rpc/serializer"
	"github.com/quorlock/quorlock/rpc/transport"
)

var Logger = logger.GetLogger("rpc")

// Defaults for the lock table maintenance parameters. The TTL matches three
// missed client heartbeats at the usual 10s heartbeat interval.
const (
	defaultLockTTLSecond       = 30
	defaultSweepIntervalSecond = 10
)

// serverShard is a struct that represents a shard in the RPC server
// It contains the lock table it encapsulates and the adapter that
// handles requests for the lock table
type serverShard struct {
	Locker  locker.ILocalLocker
	Adapter IRPCServerAdapter
}

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		tcp.NewTCPServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	 }
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) rpcServer {
	// Create shards map
	shardMap := xsync.NewMapOf[uint64, serverShard]()

	Logger.Infof("Created RPC Server")
	Logger.Infof(config.String())

	// Create the RPC server
	return rpcServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		shards:     shardMap,
	}
}

type rpcServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	shards     *xsync.MapOf[uint64, serverShard]
}

func (s *rpcServer) registerTransportHandler() {
	s.transport.RegisterHandler(func(shardId uint64, req []byte) []byte {
		var msg common.Message
		var respMsg common.Message

		// Get appropriate shard
		shard, ok := s.shards.Load(shardId)

		// Case shard does not exist -> error
		if !ok {
			respMsg = common.Message{
				MsgType: common.MsgTError,
				Err:     "shard not found",
			}
		} else {
			// Decode the request
			err := s.serializer.Deserialize(req, &msg)

			if err != nil {
				respMsg = common.Message{
					MsgType: common.MsgTError,
					Err:     fmt.Sprintf("failed to deserialize request: %s", err),
				}
			} else {
				// Let the adapter handle the request
				respMsg = *shard.Adapter.Handle(&msg, shard.Locker)
			}
		}

		// Return result
		val, err := s.serializer.Serialize(respMsg)
		if err != nil {
			respMsg = common.Message{
				MsgType: common.MsgTError,
				Err:     fmt.Sprintf("failed to serialize response: %s", err),
			}
		}
		return val
	})
}

func (s *rpcServer) init() error {

	// Init logger
	common.InitLoggers(s.config)

	// CREATE SHARDS

	/*
		Note: A single RPC Server can host any number of shards. Each shard
		is an independent lock table with its own expiry sweep. The shard ID
		in each request frame selects the table the request is routed to.
	*/

	for _, shardID := range s.config.Shards {
		lk := locker.NewLocalLocker()

		s.shards.Store(shardID, serverShard{
			Locker:  lk,
			Adapter: NewLockerServerAdapter(),
		})
		Logger.Infof("created local lock table for shard %d", shardID)

		// Expose the table counts for this shard
		s.registerShardGauges(shardID, lk)

		// Start the background expiry sweep for this shard
		go s.runSweeper(shardID, lk)
	}

	Logger.Infof("quorlock setup completed successfully")

	// Start the metrics endpoint if configured
	if s.config.MetricsEndpoint != "" {
		go s.serveMetrics()
	}

	// Configure the transport layer
	s.registerTransportHandler()

	return nil
}

// Serve starts the RPC server
// This function will also initialize the server plus the shards and start the transport layer
func (s *rpcServer) Serve() error {
	err := s.init()
	if err != nil {
		return err
	}
	return s.transport.Listen(s.config)
}

// --------------------------------------------------------------------------
// Lock Table Maintenance
// --------------------------------------------------------------------------

// runSweeper periodically removes holder records that stopped heartbeating.
// Clients are expected to refresh well within the TTL, so anything the sweep
// removes belongs to a crashed or partitioned client.
func (s *rpcServer) runSweeper(shardID uint64, lk locker.ILocalLocker) {
	ttl := time.Duration(s.config.LockTTLSecond) * time.Second
	if ttl <= 0 {
		ttl = defaultLockTTLSecond * time.Second
	}

	interval := time.Duration(s.config.SweepIntervalSecond) * time.Second
	if interval <= 0 {
		interval = defaultSweepIntervalSecond * time.Second
	}

	expiredCounter := metrics.GetOrCreateCounter(fmt.Sprintf(`quorlock_locks_expired_total{shard="%d"}`, shardID))

	Logger.Infof("starting expiry sweep for shard %d (ttl %s, interval %s)", shardID, ttl, interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		if removed := lk.Expire(ttl); removed > 0 {
			expiredCounter.Add(removed)
			Logger.Infof("expired %d stale lock(s) on shard %d", removed, shardID)
		}
	}
}

// --------------------------------------------------------------------------
// Metrics
// --------------------------------------------------------------------------

// registerShardGauges exposes the current lock table counts of one shard.
// The gauges are evaluated lazily at scrape time.
func (s *rpcServer) registerShardGauges(shardID uint64, lk locker.ILocalLocker) {
	statOf := func(pick func(locker.LockStats) int) func() float64 {
		return func() float64 {
			stats, err := lk.Stats()
			if err != nil {
				return 0
			}
			return float64(pick(stats))
		}
	}

	metrics.GetOrCreateGauge(fmt.Sprintf(`quorlock_locked_resources{shard="%d"}`, shardID),
		statOf(func(st locker.LockStats) int { return st.Total }))
	metrics.GetOrCreateGauge(fmt.Sprintf(`quorlock_write_locks{shard="%d"}`, shardID),
		statOf(func(st locker.LockStats) int { return st.Writes }))
	metrics.GetOrCreateGauge(fmt.Sprintf(`quorlock_read_locks{shard="%d"}`, shardID),
		statOf(func(st locker.LockStats) int { return st.Reads }))
}

// serveMetrics exposes all registered metrics in prometheus text format.
func (s *rpcServer) serveMetrics() {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	Logger.Infof("Starting metrics server on %s", s.config.MetricsEndpoint)
	if err := http.ListenAndServe(s.config.MetricsEndpoint, mux); err != nil {
		Logger.Errorf("metrics server stopped: %v", err)
	}
}
