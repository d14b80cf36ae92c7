// ABOUTME: The stock component set and the command registration derived from it
// ABOUTME: Shared by the running bot and the commands CLI

package bot

import (
	"log/slog"

	"github.com/2389/coven-bot/internal/builtins"
	"github.com/2389/coven-bot/internal/command"
	"github.com/2389/coven-bot/internal/component"
	"github.com/2389/coven-bot/internal/config"
	"github.com/2389/coven-bot/internal/reply"
	"github.com/2389/coven-bot/internal/store"
	"github.com/2389/coven-bot/internal/task"
)

// Components returns the stock components configured from cfg. s, replier
// and pub are only used once the components start, so a command listing can
// pass nil.
func Components(cfg *config.Config, s store.Store, replier reply.Replier, pub builtins.Publisher, logger *slog.Logger) []component.Component {
	var (
		docs store.DocumentStore
		log  store.CommandLog
	)
	if s != nil {
		docs, log = s, s
	}
	return []component.Component{
		builtins.NewAccess(cfg.Bot.Owners),
		builtins.NewHelp(cfg.Bot.CommandPrefix),
		builtins.NewMisc(),
		builtins.NewNotes(docs, logger),
		builtins.NewReminders(replier, docs, logger,
			task.WithRetention(cfg.Tasks.Retention),
			task.WithReapInterval(cfg.Tasks.ReapInterval),
		),
		builtins.NewStats(log, logger),
		builtins.NewRegistrar(pub, logger),
	}
}

// Registration builds the command tree of the stock components and returns
// its registration payload.
func Registration(cfg *config.Config) ([]command.AppCommand, error) {
	reg := component.NewRegistry(nil)
	defer reg.Close()
	for _, c := range Components(cfg, nil, nil, nil, nil) {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	tree, err := command.Build(reg.CommandNodes()...)
	if err != nil {
		return nil, err
	}
	return tree.Registration(), nil
}
