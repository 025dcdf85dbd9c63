package cmd

import (
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"

	"github.com/etnz/books"
	"github.com/etnz/books/docs"
	"github.com/etnz/books/internal/config"
)

// Completion describes the bk command line for shell completion.
// Install it with COMP_INSTALL=1 bk.
func Completion() *complete.Command {
	accounts := complete.PredictFunc(predictAccounts)
	return &complete.Command{
		Flags: map[string]complete.Predictor{
			"config":   predict.Files("*.yaml"),
			"sources":  predict.Dirs("*"),
			"output":   predict.Dirs("*"),
			"store":    predict.Set{config.StoreMemory, config.StoreDir, config.StoreBolt, config.StoreRedis, config.StorePostgres, config.StoreGCS},
			"currency": predict.Something,
			"v":        predict.Nothing,
		},
		Sub: map[string]*complete.Command{
			"assemble": {Flags: map[string]complete.Predictor{
				"full":         predict.Nothing,
				"skip-entries": predict.Nothing,
			}},
			"check":       {},
			"accounts":    {Flags: map[string]complete.Predictor{"tx": predict.Nothing}, Args: accounts},
			"entries":     {Flags: map[string]complete.Predictor{"a": accounts}},
			"unaccounted": {},
			"cache":       {},
			"topic":       {Args: complete.PredictFunc(predictTopics)},
		},
	}
}

func predictTopics(prefix string) []string {
	topics, _ := docs.GetAllTopics()
	return append(topics, "readme")
}

// predictAccounts proposes the accounts of the saved ledger.
func predictAccounts(prefix string) []string {
	cfg, err := config.Load()
	if err != nil {
		return nil
	}
	a, err := books.LoadAssembly(cfg.OutputPath)
	if err != nil {
		return nil
	}
	var names []string
	for _, acc := range a.Accounts() {
		names = append(names, acc.Name)
	}
	return names
}
