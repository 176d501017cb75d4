package cli

import "github.com/spf13/cobra"

// RegisterRoutes attaches every command group defined in the cli package
// to the provided root command, the way a full Synnergy binary mounts
// one root command per module (e.g. PoolCmd here; a production node
// would also mount its network/consensus/wallet command groups
// alongside it).
func RegisterRoutes(root *cobra.Command) {
	root.AddCommand(PoolCmd)
}
