package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/aethermind/synapse/internal/ledger"
	"github.com/aethermind/synapse/internal/store"
	"github.com/spf13/cobra"
)

// openDB is a helper that opens the database for CLI commands.
func openDB() (*store.DB, error) {
	dbPath := os.Getenv("SYNAPSE_DB")
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}
	return store.Open(dbPath)
}

func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format(time.RFC3339)
}

func printPathway(p *store.Pathway) {
	id, _ := ledger.IDFromBytes(p.ID)
	source, _ := ledger.IDFromBytes(p.SourceAgent)
	target, _ := ledger.IDFromBytes(p.TargetAgent)
	fmt.Printf("pathway %s\n", id)
	fmt.Printf("  source:   %s\n", source)
	fmt.Printf("  target:   %s\n", target)
	fmt.Printf("  strength: %d\n", p.Strength)
	fmt.Printf("  outcomes: %d success / %d failure\n", p.SuccessCount, p.FailureCount)
	fmt.Printf("  created:  %s\n", formatTime(p.CreatedAt))
	fmt.Printf("  used:     %s\n", formatTime(p.LastUsed))
}

func printToken(t *store.TokenMetadata) {
	mint, _ := ledger.IDFromBytes(t.Mint)
	pathwayID, _ := ledger.IDFromBytes(t.PathwayID)
	owner, _ := ledger.IDFromBytes(t.Owner)
	fmt.Printf("token %s\n", mint)
	fmt.Printf("  pathway:  %s\n", pathwayID)
	fmt.Printf("  owner:    %s\n", owner)
	fmt.Printf("  strength: %d (at issuance)\n", t.Strength)
	if t.URI != "" {
		fmt.Printf("  uri:      %s\n", t.URI)
	}
	fmt.Printf("  created:  %s\n", formatTime(t.CreatedAt))
}

// --- create command ---

var createEligible bool

var createCmd = &cobra.Command{
	Use:   "create [source] [target]",
	Short: "Create a pathway between two agents",
	Long:  "Create a directed pathway from source to target. Both arguments are 64-char hex agent identities. Pass --eligible once the backing account meets the minimum-balance requirement.",
	Args:  cobra.ExactArgs(2),
	RunE:  runCreate,
}

func init() {
	createCmd.Flags().BoolVar(&createEligible, "eligible", false, "Attest storage eligibility for the new record")
	issueCmd.Flags().BoolVar(&issueEligible, "eligible", false, "Attest storage eligibility for the new record")
	issueCmd.Flags().StringVar(&issueURI, "uri", "", "Off-ledger content pointer for the token")
	listCmd.Flags().StringVar(&listSource, "source", "", "Filter pathways by source agent (64 hex chars)")
}

func runCreate(cmd *cobra.Command, args []string) error {
	source, err := ledger.ParseID(args[0])
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	target, err := ledger.ParseID(args[1])
	if err != nil {
		return fmt.Errorf("target: %w", err)
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	p, err := ledger.New(db).CreatePathway(source, target, createEligible)
	if err != nil {
		return err
	}

	printPathway(p)
	return nil
}

// --- reinforce command ---

var reinforceCmd = &cobra.Command{
	Use:   "reinforce [key] [success|failure]",
	Short: "Apply a reinforcement outcome to a pathway",
	Args:  cobra.ExactArgs(2),
	RunE:  runReinforce,
}

func runReinforce(cmd *cobra.Command, args []string) error {
	key, err := ledger.ParseID(args[0])
	if err != nil {
		return fmt.Errorf("key: %w", err)
	}
	outcome, err := ledger.ParseOutcome(args[1])
	if err != nil {
		return err
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	p, err := ledger.New(db).ReinforcePathway(key, outcome)
	if err != nil {
		return err
	}

	printPathway(p)
	return nil
}

// --- issue command ---

var (
	issueEligible bool
	issueURI      string
)

var issueCmd = &cobra.Command{
	Use:   "issue [pathway] [mint] [owner]",
	Short: "Issue a token against a pathway",
	Long:  "Issue a token record referencing an existing pathway. The token snapshots the pathway's current strength; later reinforcement does not change it.",
	Args:  cobra.ExactArgs(3),
	RunE:  runIssue,
}

func runIssue(cmd *cobra.Command, args []string) error {
	pathwayID, err := ledger.ParseID(args[0])
	if err != nil {
		return fmt.Errorf("pathway: %w", err)
	}
	mint, err := ledger.ParseID(args[1])
	if err != nil {
		return fmt.Errorf("mint: %w", err)
	}
	owner, err := ledger.ParseID(args[2])
	if err != nil {
		return fmt.Errorf("owner: %w", err)
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	t, err := ledger.New(db).IssueToken(pathwayID, mint, owner, issueURI, issueEligible)
	if err != nil {
		return err
	}

	printToken(t)
	return nil
}

// --- show command ---

var showCmd = &cobra.Command{
	Use:   "show [key]",
	Short: "Show a pathway and its issued tokens",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	key, err := ledger.ParseID(args[0])
	if err != nil {
		return fmt.Errorf("key: %w", err)
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	p, err := db.GetPathway(key.Bytes())
	if err != nil {
		return fmt.Errorf("get pathway: %w", err)
	}
	if p == nil {
		fmt.Printf("No pathway found for %s\n", key)
		return nil
	}

	printPathway(p)

	tokens, err := db.ListTokensByPathway(key.Bytes())
	if err != nil {
		return fmt.Errorf("list tokens: %w", err)
	}
	if len(tokens) > 0 {
		fmt.Printf("\n%d issued token(s):\n\n", len(tokens))
		for i := range tokens {
			printToken(&tokens[i])
			fmt.Println()
		}
	}

	return nil
}

// --- list command ---

var listSource string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List pathways ordered by strength",
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	var pathways []store.Pathway
	if listSource != "" {
		source, perr := ledger.ParseID(listSource)
		if perr != nil {
			return fmt.Errorf("source: %w", perr)
		}
		pathways, err = db.ListPathwaysBySource(source.Bytes())
	} else {
		pathways, err = db.ListPathways()
	}
	if err != nil {
		return fmt.Errorf("list pathways: %w", err)
	}

	if len(pathways) == 0 {
		fmt.Println("No pathways recorded.")
		return nil
	}

	for _, p := range pathways {
		id, _ := ledger.IDFromBytes(p.ID)
		fmt.Printf("  [%3d] %s  (+%d/-%d)\n", p.Strength, id, p.SuccessCount, p.FailureCount)
	}

	return nil
}

// --- tokens command ---

var tokensCmd = &cobra.Command{
	Use:   "tokens [mint]",
	Short: "List issued tokens, or show one by mint",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTokens,
}

func runTokens(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	if len(args) == 1 {
		mint, perr := ledger.ParseID(args[0])
		if perr != nil {
			return fmt.Errorf("mint: %w", perr)
		}
		t, err := db.GetToken(mint.Bytes())
		if err != nil {
			return fmt.Errorf("get token: %w", err)
		}
		if t == nil {
			fmt.Printf("No token found for %s\n", mint)
			return nil
		}
		printToken(t)
		return nil
	}

	tokens, err := db.ListTokens()
	if err != nil {
		return fmt.Errorf("list tokens: %w", err)
	}
	if len(tokens) == 0 {
		fmt.Println("No tokens issued.")
		return nil
	}
	for _, t := range tokens {
		mint, _ := ledger.IDFromBytes(t.Mint)
		pathwayID, _ := ledger.IDFromBytes(t.PathwayID)
		fmt.Printf("  [%3d] %s → pathway %s\n", t.Strength, mint, pathwayID)
	}

	return nil
}

// --- stats command ---

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show record counts",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	pathways, err := db.CountPathways()
	if err != nil {
		return fmt.Errorf("count pathways: %w", err)
	}
	tokens, err := db.CountTokens()
	if err != nil {
		return fmt.Errorf("count tokens: %w", err)
	}

	fmt.Printf("pathways: %d\n", pathways)
	fmt.Printf("tokens:   %d\n", tokens)
	return nil
}
