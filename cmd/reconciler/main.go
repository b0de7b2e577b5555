package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/meridianpay/reconciler/internal/api"
	"github.com/meridianpay/reconciler/internal/batch"
	"github.com/meridianpay/reconciler/internal/config"
	"github.com/meridianpay/reconciler/internal/reconciliation"
	"github.com/meridianpay/reconciler/internal/repository"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "reconciler",
	Short: "Merchant payment reconciliation engine",
	Long: `Matches orchestrator-side payment records against connector settlement
data, scores each match, classifies discrepancies and drives the manual
review workflow.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE:  runServe,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process all pending records of one reconciliation batch",
	RunE:  runBatch,
}

var loadCmd = &cobra.Command{
	Use:   "load FILE",
	Short: "Load reconciliation records from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE:  runLoad,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to TOML config file")
	runCmd.Flags().String("batch", "", "Reconciliation batch ID to process")
	runCmd.MarkFlagRequired("batch")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(loadCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup() (*config.Config, *repository.RecordRepo, *batch.Service, func(), error) {
	path := cfgPath
	if path == "" {
		path = os.Getenv("RECONCILER_CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	log.Printf("Initializing database at %s", cfg.Store.Path)
	db, err := repository.InitDB(cfg.Store.Path)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("init db: %w", err)
	}

	recordRepo := repository.NewRecordRepo(db)
	svc := batch.NewService(recordRepo, cfg.Policy())

	return &cfg, recordRepo, svc, func() { db.Close() }, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, recordRepo, svc, closeDB, err := setup()
	if err != nil {
		return err
	}
	defer closeDB()

	router := api.NewRouter(recordRepo, svc)

	log.Printf("Meridian Payment Reconciler")
	log.Printf("Listening on http://%s", cfg.Addr())
	log.Printf("API base: http://%s/api/v1", cfg.Addr())

	return http.ListenAndServe(cfg.Addr(), router)
}

func runBatch(cmd *cobra.Command, args []string) error {
	_, _, svc, closeDB, err := setup()
	if err != nil {
		return err
	}
	defer closeDB()

	batchID, _ := cmd.Flags().GetString("batch")
	result, err := svc.RunBatch(batchID)
	if err != nil {
		return err
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
	return nil
}

// seedRecord is the JSON shape accepted by the load command. Snapshots are
// optional; records load as pending and a batch run classifies them.
type seedRecord struct {
	RecordID           string                          `json:"record_id"`
	MerchantID         string                          `json:"merchant_id"`
	Connector          string                          `json:"connector"`
	BatchID            string                          `json:"reconciliation_batch_id"`
	RecordType         string                          `json:"record_type"`
	ReconciliationDate time.Time                       `json:"reconciliation_date"`
	Hyperswitch        *reconciliation.HyperswitchData `json:"hyperswitch_data,omitempty"`
	ConnectorSide      *reconciliation.ConnectorData   `json:"connector_data,omitempty"`
}

func runLoad(cmd *cobra.Command, args []string) error {
	cfg, recordRepo, _, closeDB, err := setup()
	if err != nil {
		return err
	}
	defer closeDB()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	var seeds []seedRecord
	if err := json.Unmarshal(data, &seeds); err != nil {
		return fmt.Errorf("unmarshal records: %w", err)
	}

	policy := cfg.Policy()
	loaded := 0
	for _, s := range seeds {
		rtype, err := reconciliation.ParseRecordType(s.RecordType)
		if err != nil {
			log.Printf("WARNING: skipping %s: %v", s.RecordID, err)
			continue
		}
		rec, err := reconciliation.NewRecord(s.RecordID, s.MerchantID, s.Connector,
			s.BatchID, rtype, s.ReconciliationDate)
		if err != nil {
			log.Printf("WARNING: skipping %s: %v", s.RecordID, err)
			continue
		}
		if s.Hyperswitch != nil {
			rec.UpdateHyperswitchData(*s.Hyperswitch, policy)
		}
		if s.ConnectorSide != nil {
			rec.UpdateConnectorData(*s.ConnectorSide, policy)
		}
		if err := recordRepo.Insert(rec); err != nil {
			log.Printf("WARNING: failed to insert %s: %v", s.RecordID, err)
			continue
		}
		loaded++
	}

	log.Printf("Loaded %d records (out of %d in file)", loaded, len(seeds))
	return nil
}
