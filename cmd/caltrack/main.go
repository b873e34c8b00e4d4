package main

import (
	"fmt"
	"os"
	"syscall"

	"caltrack/internal/app"
	"caltrack/internal/config"
	"caltrack/internal/tracker"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "LogMeal", "Export").
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// readSecret prompts for a secret on the terminal without echo.
func readSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return string(b), nil
}

var rootCmd = &cobra.Command{
	Use:   "caltrack",
	Short: "Calorie and macro tracker",
}

// version is set at build time via -ldflags.
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("caltrack %s\n", version)
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:  %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		fmt.Printf("Database:  %s (%s)\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Printf("Vault:     %s (%s)\n", cfg.Vault.Type, cfg.Vault.Root)
		return nil
	},
}

// add command
var addCmd = &cobra.Command{
	Use:   "add NAME CALORIES",
	Short: "Log a meal",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var calories int
		if _, err := fmt.Sscanf(args[1], "%d", &calories); err != nil {
			return fmt.Errorf("calories must be a number: %q", args[1])
		}

		protein, _ := cmd.Flags().GetFloat64("protein")
		carbs, _ := cmd.Flags().GetFloat64("carbs")
		fat, _ := cmd.Flags().GetFloat64("fat")
		meal, _ := cmd.Flags().GetString("meal")
		date, _ := cmd.Flags().GetString("date")

		a, err := newApp("LogMeal")
		if err != nil {
			return err
		}
		defer a.Close()

		record, err := a.Service().LogMeal(tracker.LogMealInput{
			Name:     args[0],
			Calories: calories,
			Protein:  protein,
			Carbs:    carbs,
			Fat:      fat,
			MealType: tracker.MealType(meal),
			Date:     date,
		})
		if err != nil {
			return fmt.Errorf("logging meal: %w", err)
		}

		fmt.Printf("Logged %s (%d kcal, %s) on %s\n", record.Name, record.Calories, record.MealType, record.Date)
		return nil
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List entries for a day",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, _ := cmd.Flags().GetString("date")

		a, err := newApp("EntriesForDay")
		if err != nil {
			return err
		}
		defer a.Close()

		if date == "" {
			date = a.Service().Today()
		}

		records, err := a.Service().EntriesForDay(date)
		if err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Printf("No entries for %s.\n", date)
			return nil
		}

		for _, r := range records {
			fmt.Printf("%s  %-10s %-25s %5d kcal  P:%.1f C:%.1f F:%.1f\n",
				r.ID, r.MealType, r.Name, r.Calories, r.Protein, r.Carbs, r.Fat)
		}
		return nil
	},
}

// today command
var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Show today's summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Summarize")
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.Service().Summarize(a.Service().Today())
		if err != nil {
			return err
		}

		fmt.Printf("Summary for %s\n\n", summary.Date)
		for _, r := range summary.Records {
			fmt.Printf("  %-10s %-25s %5d kcal\n", r.MealType, r.Name, r.Calories)
		}
		fmt.Printf("\nCalories: %d / %d (%d remaining)\n",
			summary.Totals.Calories, summary.Goals.Calories, summary.Goals.Calories-summary.Totals.Calories)
		fmt.Printf("Protein:  %.1fg / %.1fg\n", summary.Totals.Protein, summary.Goals.Protein)
		fmt.Printf("Carbs:    %.1fg / %.1fg\n", summary.Totals.Carbs, summary.Goals.Carbs)
		fmt.Printf("Fat:      %.1fg / %.1fg\n", summary.Totals.Fat, summary.Goals.Fat)
		return nil
	},
}

// edit command
var editCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Edit an entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("EditMeal")
		if err != nil {
			return err
		}
		defer a.Close()

		record, err := a.Store().RecordByID(args[0])
		if err != nil {
			return fmt.Errorf("loading entry: %w", err)
		}

		if cmd.Flags().Changed("name") {
			record.Name, _ = cmd.Flags().GetString("name")
		}
		if cmd.Flags().Changed("calories") {
			record.Calories, _ = cmd.Flags().GetInt("calories")
		}
		if cmd.Flags().Changed("protein") {
			record.Protein, _ = cmd.Flags().GetFloat64("protein")
		}
		if cmd.Flags().Changed("carbs") {
			record.Carbs, _ = cmd.Flags().GetFloat64("carbs")
		}
		if cmd.Flags().Changed("fat") {
			record.Fat, _ = cmd.Flags().GetFloat64("fat")
		}
		if cmd.Flags().Changed("meal") {
			meal, _ := cmd.Flags().GetString("meal")
			record.MealType = tracker.MealType(meal)
		}
		if cmd.Flags().Changed("date") {
			record.Date, _ = cmd.Flags().GetString("date")
		}

		if err := record.Validate(); err != nil {
			return err
		}
		if err := a.Service().EditMeal(record); err != nil {
			return fmt.Errorf("updating entry: %w", err)
		}

		fmt.Printf("Updated %s\n", record.ID)
		return nil
	},
}

// delete command
var deleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete an entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RemoveMeal")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Service().RemoveMeal(args[0]); err != nil {
			return fmt.Errorf("deleting entry: %w", err)
		}

		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

// goal command
var goalCmd = &cobra.Command{
	Use:   "goal",
	Short: "Manage daily goals",
}

var goalShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show daily goals",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ActiveGoals")
		if err != nil {
			return err
		}
		defer a.Close()

		goals, err := a.Service().ActiveGoals()
		if err != nil {
			return err
		}

		fmt.Printf("Calories: %d\n", goals.Calories)
		fmt.Printf("Protein:  %.1fg\n", goals.Protein)
		fmt.Printf("Carbs:    %.1fg\n", goals.Carbs)
		fmt.Printf("Fat:      %.1fg\n", goals.Fat)
		return nil
	},
}

var goalSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set daily goals",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SaveActiveGoals")
		if err != nil {
			return err
		}
		defer a.Close()

		// Start from the current goals so a partial set keeps the rest.
		goals, err := a.Service().ActiveGoals()
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("calories") {
			goals.Calories, _ = cmd.Flags().GetInt("calories")
		}
		if cmd.Flags().Changed("protein") {
			goals.Protein, _ = cmd.Flags().GetFloat64("protein")
		}
		if cmd.Flags().Changed("carbs") {
			goals.Carbs, _ = cmd.Flags().GetFloat64("carbs")
		}
		if cmd.Flags().Changed("fat") {
			goals.Fat, _ = cmd.Flags().GetFloat64("fat")
		}

		if err := a.Service().SaveActiveGoals(goals); err != nil {
			return fmt.Errorf("saving goals: %w", err)
		}

		fmt.Println("Goals updated.")
		return nil
	},
}

// profile command
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage profiles",
}

var profileAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pin, err := readSecret("PIN (4 digits): ")
		if err != nil {
			return err
		}

		a, err := newApp("RegisterProfile")
		if err != nil {
			return err
		}
		defer a.Close()

		profile, migrated, err := a.Service().RegisterProfile(args[0], pin)
		if err != nil {
			return fmt.Errorf("creating profile: %w", err)
		}

		fmt.Printf("Created profile %s (%s)\n", profile.Name, profile.ID)
		if migrated {
			fmt.Println("Existing entries and goals were moved to this profile.")
		}
		return nil
	},
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Profiles")
		if err != nil {
			return err
		}
		defer a.Close()

		profiles, err := a.Store().Profiles()
		if err != nil {
			return err
		}

		active, err := a.Store().ActiveProfileID()
		if err != nil {
			return err
		}

		if len(profiles) == 0 {
			fmt.Println("No profiles.")
			return nil
		}

		for _, p := range profiles {
			marker := " "
			if active != nil && *active == p.ID {
				marker = "*"
			}
			fmt.Printf("%s %s  %s\n", marker, p.ID, p.Name)
		}
		return nil
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a profile and its entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RemoveProfile")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Service().RemoveProfile(args[0]); err != nil {
			return fmt.Errorf("deleting profile: %w", err)
		}

		fmt.Printf("Deleted profile %s\n", args[0])
		return nil
	},
}

var profileUseCmd = &cobra.Command{
	Use:   "use ID",
	Short: "Unlock and switch to a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pin, err := readSecret("PIN: ")
		if err != nil {
			return err
		}

		a, err := newApp("Unlock")
		if err != nil {
			return err
		}
		defer a.Close()

		ok, err := a.Service().Unlock(args[0], pin)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("incorrect PIN")
		}

		fmt.Printf("Switched to profile %s\n", args[0])
		return nil
	},
}

var profileLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the active profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Logout")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Service().Logout(); err != nil {
			return err
		}

		fmt.Println("Logged out.")
		return nil
	},
}

// export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all entries to a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		encrypt, _ := cmd.Flags().GetBool("encrypt")

		a, err := newApp("Export")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Export(out, encrypt); err != nil {
			return err
		}

		fmt.Printf("Exported to %s\n", out)
		return nil
	},
}

// import command
var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import entries from an export file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		decrypt, _ := cmd.Flags().GetBool("decrypt")

		passphrase := ""
		if decrypt {
			var err error
			passphrase, err = readSecret("Key passphrase: ")
			if err != nil {
				return err
			}
		}

		a, err := newApp("Import")
		if err != nil {
			return err
		}
		defer a.Close()

		applied, err := a.Import(args[0], passphrase)
		if err != nil {
			return fmt.Errorf("imported %d record(s) before failure: %w", applied, err)
		}

		fmt.Printf("Imported %d record(s)\n", applied)
		return nil
	},
}

// backup commands
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Store an export in the vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Backup")
		if err != nil {
			return err
		}
		defer a.Close()

		name, err := a.Backup()
		if err != nil {
			return err
		}

		fmt.Printf("Backup stored as %s\n", name)
		return nil
	},
}

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "List vault backups",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Backups")
		if err != nil {
			return err
		}
		defer a.Close()

		names, err := a.Backups()
		if err != nil {
			return err
		}

		if len(names) == 0 {
			fmt.Println("No backups.")
			return nil
		}

		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore NAME",
	Short: "Restore a backup from the vault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Restore")
		if err != nil {
			return err
		}
		defer a.Close()

		applied, err := a.Restore(args[0])
		if err != nil {
			return fmt.Errorf("restored %d record(s) before failure: %w", applied, err)
		}

		fmt.Printf("Restored %d record(s)\n", applied)
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate an encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		passphrase, err := readSecret("Passphrase for private key: ")
		if err != nil {
			return err
		}
		confirm, err := readSecret("Confirm passphrase: ")
		if err != nil {
			return err
		}
		if passphrase != confirm {
			return fmt.Errorf("passphrases do not match")
		}

		a, err := newApp("SetupKeys")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.SetupKeys(passphrase); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}

		fmt.Println("Key pair generated.")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	addCmd.Flags().Float64("protein", 0, "Protein in grams")
	addCmd.Flags().Float64("carbs", 0, "Carbohydrates in grams")
	addCmd.Flags().Float64("fat", 0, "Fat in grams")
	addCmd.Flags().String("meal", "", "Meal type (breakfast, lunch, dinner, snack)")
	addCmd.Flags().String("date", "", "Date (YYYY-MM-DD, defaults to today)")

	listCmd.Flags().String("date", "", "Date (YYYY-MM-DD, defaults to today)")

	editCmd.Flags().String("name", "", "New name")
	editCmd.Flags().Int("calories", 0, "New calories")
	editCmd.Flags().Float64("protein", 0, "New protein in grams")
	editCmd.Flags().Float64("carbs", 0, "New carbohydrates in grams")
	editCmd.Flags().Float64("fat", 0, "New fat in grams")
	editCmd.Flags().String("meal", "", "New meal type")
	editCmd.Flags().String("date", "", "New date (YYYY-MM-DD)")

	goalCmd.AddCommand(goalShowCmd)
	goalCmd.AddCommand(goalSetCmd)
	goalSetCmd.Flags().Int("calories", 0, "Daily calorie goal")
	goalSetCmd.Flags().Float64("protein", 0, "Daily protein goal in grams")
	goalSetCmd.Flags().Float64("carbs", 0, "Daily carbohydrate goal in grams")
	goalSetCmd.Flags().Float64("fat", 0, "Daily fat goal in grams")

	profileCmd.AddCommand(profileAddCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileDeleteCmd)
	profileCmd.AddCommand(profileUseCmd)
	profileCmd.AddCommand(profileLogoutCmd)

	exportCmd.Flags().String("out", "caltrack-export.json", "Output file path")
	exportCmd.Flags().Bool("encrypt", false, "Encrypt the export with the configured public key")

	importCmd.Flags().Bool("decrypt", false, "Decrypt the file with the private key before importing")

	keysCmd.AddCommand(keysInitCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(todayCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(goalCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(backupsCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(versionCmd)
}
