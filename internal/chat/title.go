package chat

import (
	"context"

	"github.com/google/uuid"

	"github.com/parley0/parley/internal/i18n"
	"github.com/parley0/parley/internal/session"
)

// deriveTitleAsync asks the generator for a session title in the
// background. Strictly best-effort: on failure the placeholder title is
// left untouched so a later successful exchange can trigger derivation
// again. Never blocks, and is never blocked by, the main generation.
func (e *Engine) deriveTitleAsync(sid uuid.UUID, firstMessage string) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		ctx, cancel := context.WithTimeout(e.bgCtx, persistTimeout)
		defer cancel()

		title, err := e.generator.DeriveTitle(ctx, firstMessage, i18n.T("title.language"))
		if err != nil {
			e.logger.Debug("title derivation failed", "session_id", sid, "error", err)
			return
		}

		// Title-only update: must not reorder the session list.
		if err := e.sessions.Update(ctx, sid, session.Update{Title: &title}); err != nil {
			e.logger.Warn("updating session title failed", "session_id", sid, "error", err)
		}
	}()
}
