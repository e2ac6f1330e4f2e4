package cli

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

// policyCmd represents the policy command
var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Compile the policy document and print the rules",
	Long: `Policy loads the expense policy document and prints the rules text that
every judgment prompt will carry. In categorized mode this makes one model
call to sort the rules into fixed categories.

Example:
  invoicecheck policy
  invoicecheck policy --policy handbook.docx --mode categorized`,
	Args: cobra.NoArgs,
	RunE: runPolicy,
}

func init() {
	rootCmd.AddCommand(policyCmd)
	addPolicyFlags(policyCmd)
}

func runPolicy(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(backgroundContext(cmd), os.Interrupt)
	defer cancel()

	_, p, logger, err := startup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	rules, err := p.CompilePolicy(ctx)
	if err != nil {
		return err
	}
	return p.Renderer().RenderRules(cmd.OutOrStdout(), rules)
}
