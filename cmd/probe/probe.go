package probe

import (
	"github.com/spf13/cobra"
	"github/chapool/signing-gateway/internal/util/command"
)

const verboseFlag = "verbose"

// New returns the probe group: liveness asks a running gateway over HTTP, readiness
// checks the upstream node and the optional audit database and Redis from this process.
func New() *cobra.Command {
	cmd := command.NewSubcommandGroup("probe",
		newLiveness(),
		newReadiness(),
	)
	cmd.Short = "Health checks for container orchestration"

	return cmd
}

func addVerboseFlag(cmd *cobra.Command) {
	cmd.Flags().BoolP(verboseFlag, "v", false, "Print every probe, not only failures.")
}

func verboseEnabled(cmd *cobra.Command) (bool, error) {
	return cmd.Flags().GetBool(verboseFlag)
}
