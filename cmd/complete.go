package cmd

import (
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// Completion describes the command line for shell completion.
func Completion() *complete.Command {
	kinds := predict.Set{"INCOME", "EXPENSE"}
	form := map[string]complete.Predictor{
		"title":  predict.Nothing,
		"amount": predict.Nothing,
		"kind":   kinds,
	}
	with := func(m map[string]complete.Predictor, more map[string]complete.Predictor) map[string]complete.Predictor {
		out := make(map[string]complete.Predictor, len(m)+len(more))
		for k, v := range m {
			out[k] = v
		}
		for k, v := range more {
			out[k] = v
		}
		return out
	}
	password := map[string]complete.Predictor{"email": predict.Nothing, "password-file": predict.Files("*")}

	return &complete.Command{
		Sub: map[string]*complete.Command{
			"login":    {Flags: password},
			"register": {Flags: with(password, map[string]complete.Predictor{"name": predict.Nothing})},
			"logout":   {},
			"whoami":   {},
			"ls":       {Flags: map[string]complete.Predictor{"kind": kinds, "head": predict.Nothing}},
			"add":      {Flags: form},
			"edit":     {Flags: with(form, map[string]complete.Predictor{"id": predict.Nothing})},
			"rm":       {},
			"purge":    {Flags: map[string]complete.Predictor{"yes": predict.Nothing}},
			"summary":  {Flags: map[string]complete.Predictor{"c": predict.Set{"INR", "USD", "EUR", "GBP"}}},
			"export": {Flags: map[string]complete.Predictor{
				"format": predict.Set{"csv", "xlsx", "postgres"},
				"o":      predict.Files("*"),
				"db":     predict.Nothing,
				"table":  predict.Nothing,
			}},
			"help":     {},
			"commands": {},
			"flags":    {},
		},
		Flags: map[string]complete.Predictor{
			"config": predict.Files("*.yaml"),
			"v":      predict.Nothing,
		},
	}
}
