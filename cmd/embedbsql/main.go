// Command embedbsql is a standalone client for an embedb database,
// grounded on the teacher's own cmd/ layout and, for the cobra
// command-tree shape, on _examples/Pieczasz-smf/cmd/smf/main.go.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/embedb/embedb/pkg/engine"
	"github.com/embedb/embedb/pkg/jsonconfig"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "embedbsql",
		Short: "Command-line client for an embedb database",
	}

	rootCmd.AddCommand(execCmd())
	rootCmd.AddCommand(replCmd())
	rootCmd.AddCommand(compactCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openEngine builds the engine's jsonconfig.Obj either from a JSON
// config file (when configPath is set, loaded with jsonconfig.ReadFile
// so "_env" expressions expand, e.g. {"storage": "bitcask", "path":
// ["_env", "${EMBEDB_PATH}"]}) or from the --db/--storage flags.
func openEngine(path, storage, configPath string) (*engine.Engine, error) {
	if configPath != "" {
		cfg, err := jsonconfig.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		return engine.Open(cfg)
	}
	cfg := jsonconfig.Obj{"storage": storage}
	if storage == "bitcask" {
		cfg["path"] = path
	}
	return engine.Open(cfg)
}

func addDBFlags(cmd *cobra.Command, path, storage, config *string) {
	cmd.Flags().StringVarP(path, "db", "d", "embedb.db", "Path to the database file")
	cmd.Flags().StringVar(storage, "storage", "bitcask", "Storage backend: bitcask or memory")
	cmd.Flags().StringVar(config, "config", "", "Path to a JSON engine config file (overrides --db/--storage)")
}

func execCmd() *cobra.Command {
	var path, storageKind, configPath string
	cmd := &cobra.Command{
		Use:   "exec <sql>",
		Short: "Execute one SQL statement and print its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			e, err := openEngine(path, storageKind, configPath)
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()

			res, err := e.NewSession().Execute(args[0])
			if err != nil {
				return err
			}
			fmt.Println(res.Render())
			return nil
		},
	}
	addDBFlags(cmd, &path, &storageKind, &configPath)
	return cmd
}

func replCmd() *cobra.Command {
	var path, storageKind, configPath string
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive SQL session",
		RunE: func(_ *cobra.Command, _ []string) error {
			e, err := openEngine(path, storageKind, configPath)
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()
			return runRepl(e)
		},
	}
	addDBFlags(cmd, &path, &storageKind, &configPath)
	return cmd
}

func runRepl(e *engine.Engine) error {
	session := e.NewSession()
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("embedb> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			fmt.Print("embedb> ")
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}
		if line == "\\d" {
			names, err := session.TableNames()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
			} else {
				for _, n := range names {
					fmt.Println(n)
				}
			}
			fmt.Print("embedb> ")
			continue
		}
		if strings.HasPrefix(line, "\\d ") {
			desc, err := session.DescribeTable(strings.TrimSpace(line[3:]))
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
			} else {
				fmt.Println(desc)
			}
			fmt.Print("embedb> ")
			continue
		}
		res, err := session.Execute(line)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		} else {
			fmt.Println(res.Render())
		}
		fmt.Print("embedb> ")
	}
	return scanner.Err()
}

func compactCmd() *cobra.Command {
	var path, storageKind, configPath string
	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Run foreground compaction on the database's log file",
		RunE: func(_ *cobra.Command, _ []string) error {
			e, err := openEngine(path, storageKind, configPath)
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()
			return e.Compact()
		},
	}
	addDBFlags(cmd, &path, &storageKind, &configPath)
	return cmd
}
