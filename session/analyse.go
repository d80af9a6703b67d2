package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/vk/mzngo/driver"
	"github.com/vk/mzngo/internal/ctxlog"
	"github.com/vk/mzngo/model"
	"github.com/vk/mzngo/protocol"
	"github.com/vk/mzngo/solver"
)

// Analyse asks the driver for the interface of m: its solving method and
// its input and output variables.
func Analyse(ctx context.Context, drv *driver.Driver, m *model.Model, cfg *solver.Config) (*protocol.Interface, error) {
	return analyse(ctx, drv, m, cfg, "", "mzngo_"+uuid.NewString()[:8])
}

func analyse(ctx context.Context, drv *driver.Driver, m *model.Model, cfg *solver.Config, dir, prefix string) (*protocol.Interface, error) {
	r, err := m.Render()
	if err != nil {
		return nil, err
	}
	art, err := materialise(r, nil, dir, prefix)
	if err != nil {
		return nil, err
	}
	defer art.release()

	args := append([]string{"--model-interface-only"}, art.files...)
	out, err := drv.Run(ctx, args, cfg)
	if err != nil {
		return nil, fmt.Errorf("analysing model: %w", err)
	}
	iface, err := protocol.ParseInterface(out.Stdout)
	if err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("Model analysed.", "method", iface.Method, "outputs", iface.Output.Len())
	return iface, nil
}
