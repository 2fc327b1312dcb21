package main

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/cuemby/strata/pkg/types"
	"github.com/spf13/cobra"
	bolt "go.etcd.io/bbolt"
)

// migrateCmd upgrades a store whose relation_info table was seeded before
// ProjectPartOfRealm and DefaultOf (indices 12 and 13) existed. storage.Open
// refuses to start against such a store, so this tool talks to the raw
// bbolt file directly and appends the two missing entries in place.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Upgrade a 12-variant relation_info table to the current 14-variant schema",
	Long: `migrate patches a strata.db file whose relation_info bucket predates the
ProjectPartOfRealm and DefaultOf relation variants. It makes a backup copy
of the database before writing, unless --dry-run is given.`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().String("data-dir", "/var/lib/strata", "Directory containing strata.db")
	migrateCmd.Flags().Bool("dry-run", false, "Report what would change without writing")
	migrateCmd.Flags().String("backup", "", "Backup path (default: <data-dir>/strata.db.backup)")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	backupPath, _ := cmd.Flags().GetString("backup")

	dbPath := filepath.Join(dataDir, "strata.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("database not found at %s", dbPath)
	}

	log.Printf("strata relation_info migration: 12 -> 14 variants")
	log.Printf("database: %s", dbPath)
	log.Printf("dry run: %v", dryRun)

	if !dryRun {
		if backupPath == "" {
			backupPath = dbPath + ".backup"
		}
		log.Printf("creating backup: %s", backupPath)
		if err := copyFile(dbPath, backupPath); err != nil {
			return fmt.Errorf("create backup: %w", err)
		}
		log.Println("backup created")
	}

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	return migrateRelationInfo(db, dryRun)
}

func migrateRelationInfo(db *bolt.DB, dryRun bool) error {
	seeded := types.SeededRelationInfos()

	var existing int
	err := db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte("relation_info"))
		if b == nil {
			return fmt.Errorf("relation_info bucket not found — is this a strata database?")
		}
		existing = b.Stats().KeyN
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("found %d relation_info entries, schema defines %d", existing, len(seeded))

	if existing == len(seeded) {
		log.Println("already at the current schema, nothing to do")
		return nil
	}
	if existing != 12 {
		return fmt.Errorf("relation_info has %d entries; only a 12-entry table (pre-ProjectPartOfRealm/DefaultOf) can be migrated automatically", existing)
	}

	missing := seeded[12:]
	if dryRun {
		log.Println("[DRY RUN] would append:")
		for _, info := range missing {
			log.Printf("  %d: %s / %s", info.Index, info.Forward, info.Backward)
		}
		return nil
	}

	return db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte("relation_info"))
		for _, info := range missing {
			data, err := json.Marshal(info)
			if err != nil {
				return fmt.Errorf("encode variant %d: %w", info.Index, err)
			}
			key := make([]byte, 4)
			binary.BigEndian.PutUint32(key, uint32(info.Index))
			if err := b.Put(key, data); err != nil {
				return fmt.Errorf("put variant %d: %w", info.Index, err)
			}
			log.Printf("added %d: %s / %s", info.Index, info.Forward, info.Backward)
		}
		return nil
	})
}

func copyFile(src, dst string) error {
	input, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, input, 0600)
}
