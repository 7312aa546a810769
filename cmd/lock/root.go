package lock

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/quorlock/quorlock/cmd/util"
	"github.com/quorlock/quorlock/lib/locker"
	"github.com/quorlock/quorlock/rpc/client"
	"github.com/spf13/cobra"
)

var (
	rpcLocker locker.ILocker

	lockUID    string
	lockOwner  string
	lockSource string
	lockQuorum int

	// LockCommands represents the lock command group
	LockCommands = &cobra.Command{
		Use:               "lock",
		Short:             "Perform lock operations",
		PersistentPreRunE: setupLockClient,
	}

	// acquireCmd represents the acquire command
	acquireCmd = &cobra.Command{
		Use:   "acquire [resource ...]",
		Short: "Acquire exclusive locks",
		Long:  "Atomically acquire exclusive locks on one or more resources. If no --uid is given a fresh one is generated and printed; it is the handle for release, refresh and force-release.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAcquire,
	}

	// releaseCmd represents the release command
	releaseCmd = &cobra.Command{
		Use:   "release [resource ...]",
		Short: "Release previously acquired exclusive locks",
		Long:  "Release the exclusive locks on the given resources held by --uid. The UID is the string returned by the acquire command.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runRelease,
	}

	// racquireCmd represents the shared acquire command
	racquireCmd = &cobra.Command{
		Use:   "racquire [resource]",
		Short: "Acquire a shared lock",
		Long:  "Acquire a shared (read) lock on a single resource. Multiple readers may hold the same resource concurrently.",
		Args:  cobra.ExactArgs(1),
		RunE:  runRAcquire,
	}

	// rreleaseCmd represents the shared release command
	rreleaseCmd = &cobra.Command{
		Use:   "rrelease [resource]",
		Short: "Release a shared lock",
		Args:  cobra.ExactArgs(1),
		RunE:  runRRelease,
	}

	// refreshCmd represents the refresh command
	refreshCmd = &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the lease of a lock set",
		Long:  "Confirm liveness of all locks held under --uid and extend their staleness deadline so the expiry sweep spares them.",
		RunE:  runRefresh,
	}

	// forceReleaseCmd represents the force-release command
	forceReleaseCmd = &cobra.Command{
		Use:   "force-release [resource ...]",
		Short: "Administratively remove locks",
		Long:  "Without --uid every holder of the named resources is removed unconditionally. With --uid the removal is scoped to that UID and resources are discovered through the UID itself (no resource arguments needed).",
		RunE:  runForceRelease,
	}

	// statsCmd represents the stats command
	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show lock table statistics",
		RunE:  runStats,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add subcommands to lock command
	LockCommands.AddCommand(acquireCmd)
	LockCommands.AddCommand(releaseCmd)
	LockCommands.AddCommand(racquireCmd)
	LockCommands.AddCommand(rreleaseCmd)
	LockCommands.AddCommand(refreshCmd)
	LockCommands.AddCommand(forceReleaseCmd)
	LockCommands.AddCommand(statsCmd)

	// Add common RPC flags to the lock command
	util.SetupRPCClientFlags(LockCommands)

	// Set default shard ID for lock operations
	LockCommands.PersistentFlags().Int("shard", 100, util.WrapString("ID of the shard to connect to"))

	// Lock identity flags shared by all subcommands
	LockCommands.PersistentFlags().StringVar(&lockUID, "uid", "", util.WrapString("UID of the lock request (generated on acquire if empty)"))
	LockCommands.PersistentFlags().StringVar(&lockOwner, "owner", "", util.WrapString("owner on whose behalf the lock is held"))
	LockCommands.PersistentFlags().StringVar(&lockSource, "source", "quorlock-cli", util.WrapString("diagnostic hint recorded with the lock"))
	LockCommands.PersistentFlags().IntVar(&lockQuorum, "quorum", 0, util.WrapString("quorum size recorded with the lock (bookkeeping only)"))
}

// setupLockClient initializes the locker client
func setupLockClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Get client configuration components
	config := util.GetClientConfig()
	shardId := util.GetShardID()

	// Get serializer and transport
	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	t, err := util.GetTransport()
	if err != nil {
		return err
	}

	// Create the locker client
	rpcLocker, err = client.NewRPCLocker(
		shardId,
		*config,
		t,
		s,
	)

	return err
}

// lockArgs assembles the request from the shared flags and the
// resource arguments
func lockArgs(resources []string) *locker.LockArgs {
	return &locker.LockArgs{
		UID:       lockUID,
		Resources: resources,
		Owner:     lockOwner,
		Source:    lockSource,
		Quorum:    lockQuorum,
	}
}

// runAcquire handles the acquire lock command
func runAcquire(_ *cobra.Command, args []string) error {
	if lockUID == "" {
		lockUID = uuid.NewString()
	}

	acquired, err := rpcLocker.Lock(lockArgs(args))
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %v", err)
	}

	if !acquired {
		fmt.Printf("acquired=false\n")
		return nil
	}

	fmt.Printf("acquired=true, uid=%s\n", lockUID)
	return nil
}

// runRelease handles the release lock command
func runRelease(_ *cobra.Command, args []string) error {
	if lockUID == "" {
		return fmt.Errorf("release requires --uid")
	}

	released, err := rpcLocker.Unlock(lockArgs(args))
	if err != nil {
		// read-locked resources are reported but do not abort the rest
		fmt.Printf("released=%v\n", released)
		return fmt.Errorf("failed to release lock: %v", err)
	}

	fmt.Printf("released=%v\n", released)
	return nil
}

// runRAcquire handles the shared acquire command
func runRAcquire(_ *cobra.Command, args []string) error {
	if lockUID == "" {
		lockUID = uuid.NewString()
	}

	acquired, err := rpcLocker.RLock(lockArgs(args))
	if err != nil {
		return fmt.Errorf("failed to acquire shared lock: %v", err)
	}

	if !acquired {
		fmt.Printf("acquired=false\n")
		return nil
	}

	fmt.Printf("acquired=true, uid=%s\n", lockUID)
	return nil
}

// runRRelease handles the shared release command
func runRRelease(_ *cobra.Command, args []string) error {
	if lockUID == "" {
		return fmt.Errorf("rrelease requires --uid")
	}

	released, err := rpcLocker.RUnlock(lockArgs(args))
	if err != nil {
		return fmt.Errorf("failed to release shared lock: %v", err)
	}

	fmt.Printf("released=%v\n", released)
	return nil
}

// runRefresh handles the refresh command
func runRefresh(_ *cobra.Command, _ []string) error {
	if lockUID == "" {
		return fmt.Errorf("refresh requires --uid")
	}

	refreshed, err := rpcLocker.Refresh(lockArgs(nil))
	if err != nil {
		return fmt.Errorf("failed to refresh lock: %v", err)
	}

	fmt.Printf("refreshed=%v\n", refreshed)
	return nil
}

// runForceRelease handles the force-release command
func runForceRelease(_ *cobra.Command, args []string) error {
	if lockUID == "" && len(args) == 0 {
		return fmt.Errorf("force-release requires either --uid or resource arguments")
	}

	released, err := rpcLocker.ForceUnlock(lockArgs(args))
	if err != nil {
		return fmt.Errorf("failed to force-release lock: %v", err)
	}

	fmt.Printf("released=%v\n", released)
	return nil
}

// runStats handles the stats command
func runStats(_ *cobra.Command, _ []string) error {
	stats, err := rpcLocker.Stats()
	if err != nil {
		return fmt.Errorf("failed to fetch stats: %v", err)
	}

	fmt.Printf("total=%d writes=%d reads=%d\n", stats.Total, stats.Writes, stats.Reads)
	return nil
}
