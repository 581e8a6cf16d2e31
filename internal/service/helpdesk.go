package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/tracker-central/internal/domain"
	"github.com/spec-kit/tracker-central/internal/freshdesk"
	apperrors "github.com/spec-kit/tracker-central/pkg/util"
)

// HelpdeskNotConfigured is the message of the configuration error raised
// while no Freshdesk subdomain is set.
const HelpdeskNotConfigured = "Freshdesk subdomain is not configured"

// Helpdesk is the subset of the Freshdesk client the services use.
type Helpdesk interface {
	GetTicket(ctx context.Context, id int64) (*domain.Ticket, error)
	GetAssociatedTickets(ctx context.Context, id int64) ([]domain.Ticket, error)
	GetPrimeAssociation(ctx context.Context, id int64) (*domain.Ticket, error)
	CreateTicket(ctx context.Context, payload freshdesk.TicketPayload) (*domain.Ticket, error)
	UpdateTicketTags(ctx context.Context, id int64, tags []string) error
	AddNote(ctx context.Context, id int64, body string, private bool) (*freshdesk.Note, error)
	TicketURL(id int64) string
}

// CompanyLookup resolves companies, usually through a cache.
type CompanyLookup interface {
	Get(ctx context.Context, id int64) (*domain.Company, error)
}

// TicketContextLoader builds the prefill context of a form from a ticket and
// its company.
type TicketContextLoader struct {
	helpdesk  Helpdesk
	companies CompanyLookup
	logger    *zap.Logger
}

// NewTicketContextLoader constructs the loader. helpdesk may be nil while
// the integration is unconfigured.
func NewTicketContextLoader(helpdesk Helpdesk, companies CompanyLookup, logger *zap.Logger) *TicketContextLoader {
	return &TicketContextLoader{helpdesk: helpdesk, companies: companies, logger: logger}
}

// Load fetches ticket id. A failed company lookup is logged and leaves the
// district fields empty.
func (l *TicketContextLoader) Load(ctx context.Context, id int64) (*domain.TicketContext, *domain.Ticket, error) {
	if l.helpdesk == nil {
		return nil, nil, apperrors.NewConfigurationError(HelpdeskNotConfigured)
	}
	ticket, err := l.helpdesk.GetTicket(ctx, id)
	if err != nil {
		return nil, nil, helpdeskError(fmt.Sprintf("Failed to load ticket %d", id), err)
	}

	var company *domain.Company
	if cid := ticket.Company(); cid != 0 && l.companies != nil {
		company, err = l.companies.Get(ctx, cid)
		if err != nil {
			l.logger.Warn("company lookup failed", zap.Int64("ticket_id", id), zap.Int64("company_id", cid), zap.Error(err))
			company = nil
		}
	}
	tc := domain.NewTicketContext(ticket, company)
	return &tc, ticket, nil
}

// helpdeskError maps a Freshdesk failure onto the error taxonomy.
func helpdeskError(prefix string, err error) error {
	var apiErr *freshdesk.APIError
	switch {
	case errors.As(err, &apiErr):
		if apiErr.Status == 404 {
			return apperrors.NewNotFound("ticket", map[string]any{"message": apiErr.Message()})
		}
		return apperrors.NewUpstreamError(prefix+": "+apiErr.Message(), err)
	case errors.Is(err, freshdesk.ErrMalformedResponse):
		return apperrors.NewUpstreamError(prefix+": Error parsing response", err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return apperrors.NewUpstreamError(prefix+": request timed out", err)
	default:
		return apperrors.NewUpstreamError(prefix+": "+err.Error(), err)
	}
}
