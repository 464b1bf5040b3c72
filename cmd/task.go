package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/elevans/imgal/pkg/hooks"
)

var taskCmd = &cobra.Command{
	Use:   "task [key=value ...] [task ...]",
	Short: "Runs tasks from the project's hook script",
	Long: `Evaluates the project's hook script and runs the given tasks. key=value
arguments override option() declarations. Without task arguments the
available tasks are listed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dry, err := cmd.Flags().GetBool("dry")
		if err != nil {
			return err
		}
		force, err := cmd.Flags().GetBool("force")
		if err != nil {
			return err
		}

		taskArgs := make([]string, 0)
		options := make(map[string]string)
		for _, part := range args {
			if pos := strings.Index(part, "="); pos > -1 {
				options[part[:pos]] = part[pos+1:]
			} else {
				taskArgs = append(taskArgs, part)
			}
		}

		ctx := buildContext()
		m, err := resolveManifest(cmd)
		if err != nil {
			return err
		}

		tasks, err := loadHookTasks(ctx, m, options)
		if err != nil {
			return err
		}
		if tasks == nil {
			return eris.Errorf("the project has no %s", hooks.DefaultFileName)
		}

		if len(taskArgs) == 0 {
			listTasks(tasks)
			return nil
		}

		for _, name := range taskArgs {
			if err := hooks.RunTask(ctx, name, tasks, dry, force); err != nil {
				return err
			}
		}
		return nil
	},
}

func listTasks(tasks hooks.TaskSet) {
	names := make([]string, 0, len(tasks))
	maxNameLen := 0
	for name, task := range tasks {
		if task.Hidden {
			continue
		}
		if len(name) > maxNameLen {
			maxNameLen = len(name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("Available tasks:")
	lineFmt := fmt.Sprintf(" * %%-%ds %%s\n", maxNameLen+3)
	for _, name := range names {
		fmt.Printf(lineFmt, name+":", tasks[name].Desc)
	}
}

func init() {
	addProfileFlags(taskCmd)
	taskCmd.Flags().BoolP("dry", "n", false, "only print the commands, don't execute anything")
	taskCmd.Flags().BoolP("force", "f", false, "run tasks even if their outputs are up to date")
	rootCmd.AddCommand(taskCmd)
}
