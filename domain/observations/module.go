package observations

import (
	"go.uber.org/fx"

	"github.com/engramdb/engram/internal/config"
	"github.com/engramdb/engram/pkg/classify"
)

var Module = fx.Module("observations",
	fx.Provide(
		newClassifier,
		NewRepository,
		NewService,
		NewHandler,
	),
	fx.Invoke(RegisterRoutes),
)

func newClassifier(cfg *config.Config) (*classify.Classifier, error) {
	if cfg.ClassifyRulesFile != "" {
		return classify.NewFromFile(cfg.ClassifyRulesFile)
	}
	return classify.New(), nil
}
