package keystore

import (
	"github.com/spf13/cobra"
	"github/chapool/signing-gateway/internal/util/command"
)

const outFlag = "out"

func New() *cobra.Command {
	return command.NewSubcommandGroup("keystore",
		newCreate(),
		newVerify(),
	)
}
