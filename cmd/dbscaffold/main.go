package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tordrt/dbscaffold"
	"github.com/tordrt/dbscaffold/internal/connection"
	"github.com/tordrt/dbscaffold/internal/logging"
)

var (
	connectionRef   string
	connectionsFile string
	outputDir       string
	contextDir      string
	contextName     string
	packageName     string
	tables          string
	excludeTables   string
	schemaName      string
	useTableNames   bool
	force           bool
	verbose         bool
)

var rootCmd = &cobra.Command{
	Use:   "dbscaffold",
	Short: "Scaffold Go model code from an existing database",
	Long: `dbscaffold reverse-engineers an existing PostgreSQL, MySQL, or SQLite
database into Go model code: a data-access context file plus one file per
entity. The connection may be a literal URL or a "Name=X" reference resolved
against a YAML connections file.`,
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVarP(&connectionRef, "connection", "c", "", "Connection string or Name=X reference (required)")
	rootCmd.Flags().StringVar(&connectionsFile, "connections-file", "", "Connections file for Name=X references (default: ~/.dbscaffold/connections.yaml)")
	rootCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "Models", "Directory the entity files are written to")
	rootCmd.Flags().StringVar(&contextDir, "context-dir", "", "Sibling directory for the context file (relative to the output directory's parent)")
	rootCmd.Flags().StringVar(&contextName, "context", "", "Name of the generated context type (default: DataContext)")
	rootCmd.Flags().StringVarP(&packageName, "package", "p", "", "Package name of the generated files (default: models)")
	rootCmd.Flags().StringVarP(&tables, "tables", "t", "", "Only scaffold these tables (comma-separated)")
	rootCmd.Flags().StringVar(&excludeTables, "exclude-tables", "", "Skip these tables (comma-separated)")
	rootCmd.Flags().StringVarP(&schemaName, "schema", "s", "", "Database schema name (default: public for PostgreSQL)")
	rootCmd.Flags().BoolVar(&useTableNames, "use-table-names", false, "Name entities after tables without singularizing")
	rootCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing files")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	cobra.CheckErr(rootCmd.MarkFlagRequired("connection"))
}

func run(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	logger := logging.Setup(os.Stderr, verbose)

	// Local .env values may hold the variables a connections file expands.
	_ = godotenv.Load()

	scaffolder := dbscaffold.NewScaffolder()
	if connectionsFile != "" {
		scaffolder.Resolver = &connection.FileResolver{Path: connectionsFile}
	}

	logger.Debug("scaffolding model", "connection", connectionRef, "output", outputDir)

	scaffolded, err := scaffolder.ScaffoldModel(ctx, connectionRef,
		dbscaffold.IntrospectOptions{
			Tables:     parseTableList(tables),
			SchemaName: schemaName,
		},
		dbscaffold.ModelOptions{
			Tables:        parseTableList(tables),
			ExcludeTables: parseTableList(excludeTables),
			UseTableNames: useTableNames,
		},
		dbscaffold.CodeOptions{
			Package:     packageName,
			ContextName: contextName,
			ContextDir:  contextDir,
		},
	)
	if err != nil {
		return err
	}

	saved, err := dbscaffold.Save(scaffolded, outputDir, force)
	if err != nil {
		return err
	}

	color.Green("Scaffolded %d entities", len(saved.AdditionalFiles))
	fmt.Println(saved.ContextFile)
	for _, f := range saved.AdditionalFiles {
		fmt.Println(f)
	}
	return nil
}

// parseTableList splits a comma-separated table list, trimming whitespace.
func parseTableList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
