package servecmd

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/finvera/backoffice/internal/approval"
	"github.com/finvera/backoffice/internal/audit/chain"
	"github.com/finvera/backoffice/internal/auth/rbac"
	"github.com/finvera/backoffice/internal/auth/token"
	"github.com/finvera/backoffice/internal/cli/common"
	"github.com/finvera/backoffice/internal/db"
	"github.com/finvera/backoffice/internal/lock"
	approvalsgorm "github.com/finvera/backoffice/internal/repo/gorm/approvals"
	usersgorm "github.com/finvera/backoffice/internal/repo/gorm/users"
	httpserver "github.com/finvera/backoffice/internal/server/http"
)

// New returns the `merchantd serve` command.
func New() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the backoffice API",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viper.GetViper()
			v.SetEnvPrefix("MERCHANTD")
			v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
			v.AutomaticEnv()
			v.SetDefault("http_addr", ":8080")
			v.SetDefault("log.level", "info")
			v.SetDefault("log.format", "console")
			if cfgFile != "" {
				v.SetConfigFile(cfgFile)
				if err := v.ReadInConfig(); err == nil {
					log.Printf("[config] using %s", v.ConfigFileUsed())
				} else {
					log.Printf("[warn] read config: %v", err)
				}
			}

			common.SetupLogger(
				v.GetString("log.level"), v.GetString("log.format"), v.GetString("log.file"),
				v.GetInt("log.max_size"), v.GetInt("log.max_backups"), v.GetInt("log.max_age"),
				v.GetBool("log.compress"),
			)
			if err := common.ValidateServeConfig(v, false); err != nil {
				return fmt.Errorf("config invalid: %w", err)
			}

			gdb, err := db.Open(v.GetString("db_dsn"))
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}

			store := approvalsgorm.New(gdb)
			if err := store.AutoMigrate(); err != nil {
				return fmt.Errorf("migrate approvals: %w", err)
			}
			users := usersgorm.New(gdb)
			if err := users.AutoMigrate(); err != nil {
				return fmt.Errorf("migrate operators: %w", err)
			}
			if v.GetBool("seed_admin") {
				if err := users.Seed(context.Background(), "admin", "Administrator", v.GetString("seed_admin_password"), []string{"admin"}); err != nil {
					log.Printf("[warn] seed admin: %v", err)
				}
			}

			var guard lock.Guard
			if url := v.GetString("lock.redis_url"); url != "" {
				rg, err := lock.NewRedis(url)
				if err != nil {
					return fmt.Errorf("redis guard: %w", err)
				}
				defer rg.Close()
				guard = rg
				log.Printf("[lock] using redis guard at %s", url)
			} else {
				guard = lock.NewLocal()
				log.Printf("[lock] using in-process guard (single instance only)")
			}

			var auditor approval.Auditor
			if path := v.GetString("audit_log"); path != "" {
				w, err := chain.NewWriter(path)
				if err != nil {
					return fmt.Errorf("audit writer: %w", err)
				}
				defer w.Close()
				auditor = w
			}

			engine := approval.NewEngine(store, approval.NewRegistry(guard), auditor)

			secret := v.GetString("jwt_secret")
			if secret == "" {
				secret = "dev-secret-do-not-use"
				log.Printf("[warn] jwt_secret not set; using dev secret")
			}
			tokens := token.NewManager(secret, v.GetDuration("jwt_ttl"))

			var policy *rbac.Policy
			if mp := v.GetString("rbac.model"); mp != "" {
				policy, err = rbac.Load(mp, v.GetString("rbac.policy"))
				if err != nil {
					return fmt.Errorf("load rbac policy: %w", err)
				}
			}

			verify := func(username, password string) (*httpserver.OperatorInfo, error) {
				op, err := users.Verify(context.Background(), username, password)
				if err != nil {
					return nil, err
				}
				return &httpserver.OperatorInfo{Username: op.Username, Name: op.Name, Roles: []string(op.Roles)}, nil
			}

			srv := httpserver.New(engine, store, verify, tokens, policy)
			addr := v.GetString("http_addr")
			log.Printf("[http] listening on %s", addr)
			return srv.Router().Run(addr)
		},
	}
	cmd.Flags().StringVar(&cfgFile, "config", "", "config file path")
	return cmd
}
