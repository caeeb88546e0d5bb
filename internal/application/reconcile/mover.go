package reconcile

import (
	"context"

	"go.uber.org/zap"

	"marginalia/internal/domain"
	"marginalia/internal/ports"
)

// Mover is the bus subscriber that performs rename tasks on the filesystem
type Mover struct {
	files  ports.Filesystem
	logger *zap.Logger
}

// Ensure Mover implements RenameHandler
var _ ports.RenameHandler = (*Mover)(nil)

// NewMover creates a mover over files
func NewMover(files ports.Filesystem, logger *zap.Logger) *Mover {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mover{files: files, logger: logger}
}

func (m *Mover) HandleRename(_ context.Context, task domain.RenameTask) error {
	if err := m.files.Move(task.From, task.To); err != nil {
		return err
	}
	m.logger.Debug("moved", zap.String("from", task.From), zap.String("to", task.To))
	return nil
}
