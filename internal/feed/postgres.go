package feed

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// postgresSource turns LISTEN/NOTIFY on the task event channel into an
// event stream. It holds a dedicated connection for the lifetime of a
// subscription; pooled connections cannot sit in WaitForNotification.
type postgresSource struct {
	logger     zerolog.Logger
	connString string
	channel    string
}

func NewPostgresSource(
	logger zerolog.Logger,
	connString string,
	channel string,
) Source {
	return &postgresSource{
		logger:     logger,
		connString: connString,
		channel:    channel,
	}
}

func (s *postgresSource) Subscribe(ctx context.Context) (<-chan Event, error) {
	conn, err := pgx.Connect(ctx, s.connString)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to connect for change feed")
		return nil, err
	}

	_, err = conn.Exec(ctx, "LISTEN "+pgx.Identifier{s.channel}.Sanitize())
	if err != nil {
		_ = conn.Close(ctx)
		s.logger.Error().
			Err(err).
			Str("channel", s.channel).
			Msg("failed to listen on change feed channel")
		return nil, err
	}
	s.logger.Debug().
		Str("channel", s.channel).
		Msg("listening on change feed channel")

	events := make(chan Event)
	go func() {
		defer close(events)
		defer func() { _ = conn.Close(context.Background()) }()

		for {
			notification, err := conn.WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					s.logger.Error().
						Err(err).
						Msg("change feed connection lost")
				}
				return
			}

			select {
			case events <- Event{Kind: EventKind(notification.Payload)}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}
