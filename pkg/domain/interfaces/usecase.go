package interfaces

import (
	"context"

	"github.com/m-mizutani/gdfetch/pkg/domain/model"
)

// FetchUseCase runs download jobs end to end.
type FetchUseCase interface {
	// Fetch makes the model directory of one job available on disk.
	Fetch(ctx context.Context, job model.Job) (*model.FetchResult, error)

	// FetchAll runs jobs one after another and stops at the first error.
	FetchAll(ctx context.Context, jobs []model.Job) ([]*model.FetchResult, error)
}

// ModelDirUseCase locates and flattens model directories.
type ModelDirUseCase interface {
	// Flatten promotes a nested model directory up to targetDir.
	Flatten(ctx context.Context, targetDir string) (*model.ModelDirectory, error)
}
