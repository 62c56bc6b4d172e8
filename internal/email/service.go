package email

import (
	"context"
)

type Service interface {
	SendInvite(ctx context.Context, to, name, tempPassword string) error
	SendCustom(ctx context.Context, to, subject, content string) error
}
