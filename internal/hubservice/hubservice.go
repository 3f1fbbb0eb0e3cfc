// FilePath: internal/hubservice/hubservice.go
package hubservice

import (
	"github.com/rainwatch/rainhub/internal/cleanup"
	"github.com/rainwatch/rainhub/internal/config"
	"github.com/rainwatch/rainhub/internal/errors"
	"github.com/rainwatch/rainhub/internal/events"
	"github.com/rainwatch/rainhub/internal/repository"
)

// HubService contains all repositories and service-wide dependencies
type HubService struct {
	Devices   repository.DeviceRepository
	Rain      repository.RainReadingRepository
	Images    repository.ImageRepository
	Blobs     repository.BlobStore
	Publisher events.Publisher
	Cleanup   *cleanup.CleanupService
	fileCfg   config.FileStoreConfig
}

// New creates a new HubService instance. The publisher is an injected
// capability so tests can substitute a no-op implementation.
func New(
	devices repository.DeviceRepository,
	rain repository.RainReadingRepository,
	images repository.ImageRepository,
	blobs repository.BlobStore,
	publisher events.Publisher,
	fileCfg config.FileStoreConfig,
) *HubService {
	svc := &HubService{
		Devices:   devices,
		Rain:      rain,
		Images:    images,
		Blobs:     blobs,
		Publisher: publisher,
		fileCfg:   fileCfg,
	}
	svc.Cleanup = cleanup.New(devices, rain, images, blobs)
	return svc
}

// Validate checks if all required dependencies are initialized
func (s *HubService) Validate() error {
	if s.Devices == nil {
		return ErrMissingRepository("devices")
	}
	if s.Rain == nil {
		return ErrMissingRepository("rain")
	}
	if s.Images == nil {
		return ErrMissingRepository("images")
	}
	if s.Blobs == nil {
		return ErrMissingRepository("blobs")
	}
	if s.Publisher == nil {
		return ErrMissingRepository("publisher")
	}
	return nil
}

func ErrMissingRepository(name string) error {
	return errors.NewInternalError("missing repository: "+name, nil)
}
