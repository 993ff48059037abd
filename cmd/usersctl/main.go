// Command usersctl performs administrative user operations directly against
// the database: lookup and the activation gate that sign-in depends on.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	pg "github.com/NordCoder/crewcruise/internal/repository/postgres"
	"github.com/NordCoder/crewcruise/internal/services/api-gateway/users"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	_ = v.BindEnv("db.dsn", "DB_DSN")
	v.SetDefault("timeout", 10*time.Second)

	cmd := &cobra.Command{
		Use:           "usersctl",
		Short:         "Administer crewcruise users",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().String("dsn", "", "Postgres DSN (defaults to $DB_DSN)")
	cmd.PersistentFlags().Duration("timeout", 10*time.Second, "Operation timeout")
	_ = v.BindPFlag("db.dsn", cmd.PersistentFlags().Lookup("dsn"))
	_ = v.BindPFlag("timeout", cmd.PersistentFlags().Lookup("timeout"))

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show <id|email>",
			Short: "Print a user as JSON",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withUsers(cmd.Context(), v, func(ctx context.Context, uc *users.Usecase) error {
					u, err := uc.Find(ctx, args[0])
					if err != nil {
						return err
					}
					return printJSON(cmd, u)
				})
			},
		},
		activationCmd(v, "activate", "Allow a user to sign in", true),
		activationCmd(v, "deactivate", "Block a user from signing in", false),
	)
	return cmd
}

func activationCmd(v *viper.Viper, use, short string, on bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id|email>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUsers(cmd.Context(), v, func(ctx context.Context, uc *users.Usecase) error {
				u, err := uc.Find(ctx, args[0])
				if err != nil {
					return err
				}
				u, err = uc.SetActivated(ctx, u.ID, on)
				if err != nil {
					return err
				}
				return printJSON(cmd, u)
			})
		},
	}
}

func withUsers(ctx context.Context, v *viper.Viper, fn func(context.Context, *users.Usecase) error) error {
	dsn := v.GetString("db.dsn")
	if dsn == "" {
		return errors.New("no database DSN: pass --dsn or set DB_DSN")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, v.GetDuration("timeout"))
	defer cancel()

	db, err := pg.NewDB(ctx, pg.Config{DSN: dsn, MaxConns: 2})
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer db.Close()
	return fn(ctx, users.New(pg.NewUserRepo(db)))
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
