// The account command is a small convenience tool for manipulating player
// accounts in the configured server database.
package account

import (
	"bufio"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	"github.com/mcastelli/minegate/internal/core"
	"github.com/mcastelli/minegate/internal/core/auth"
	"github.com/mcastelli/minegate/internal/core/data"
)

func Command() *cli.Command {
	configFlag := &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to the directory containing the server config file",
		EnvVars: []string{"MINEGATE_CONFIG"},
		Value:   "./",
	}

	return &cli.Command{
		Name:        "account",
		Usage:       "manage player accounts",
		Description: "Administrative operations on the account database.",
		Subcommands: []*cli.Command{
			{
				Name:   "add",
				Usage:  "create an account",
				Action: addAccount,
				Flags:  []cli.Flag{configFlag},
			},
			{
				Name:   "delete",
				Usage:  "soft delete an account",
				Action: deleteAccount,
				Flags:  []cli.Flag{configFlag},
			},
		},
	}
}

// initDataSource opens the database named by the config in the directory
// given by the command's config flag.
func initDataSource(c *cli.Context) (*gorm.DB, error) {
	config, err := core.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}

	dataSource := config.Database.Filename
	if config.Database.Engine == "postgres" {
		dataSource = config.DatabaseURL()
	}
	return data.Initialize(config.Database.Engine, dataSource, false)
}

func addAccount(c *cli.Context) error {
	db, err := initDataSource(c)
	if err != nil {
		return err
	}
	defer func() { _ = data.Shutdown(db) }()

	username := scanInput("Username")
	password := scanInput("Password")

	account, err := auth.CreateAccount(db, username, password)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	fmt.Println("created account with ID:", account.ID)
	return nil
}

func deleteAccount(c *cli.Context) error {
	db, err := initDataSource(c)
	if err != nil {
		return err
	}
	defer func() { _ = data.Shutdown(db) }()

	username := scanInput("Username")

	account, err := data.FindAccountByUsername(db, username)
	if err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("no account exists for username %q", username)
	}
	if err := data.DeleteAccount(db, account); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	fmt.Println("deleted account")
	return nil
}

func scanInput(prompt string) string {
	fmt.Printf("%s: ", prompt)
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Scan()
	return scanner.Text()
}
