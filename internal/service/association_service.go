package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/tracker-central/internal/domain"
	"github.com/spec-kit/tracker-central/internal/freshdesk"
	apperrors "github.com/spec-kit/tracker-central/pkg/util"
)

const (
	msgNoAssociated   = "No associated tickets found"
	msgNoCompanies    = "No companies found in associated tickets"
	msgNotAssociated  = "This ticket is not associated with other tickets"
	msgNoTracker      = "No tracker ticket found"
	defaultLookupJobs = 4
)

// AssociationService summarises how a ticket relates to trackers.
type AssociationService struct {
	helpdesk    Helpdesk
	companies   CompanyLookup
	concurrency int
	logger      *zap.Logger
}

// NewAssociationService constructs the service. concurrency bounds the
// parallel company lookups.
func NewAssociationService(helpdesk Helpdesk, companies CompanyLookup, concurrency int, logger *zap.Logger) *AssociationService {
	if concurrency <= 0 {
		concurrency = defaultLookupJobs
	}
	return &AssociationService{helpdesk: helpdesk, companies: companies, concurrency: concurrency, logger: logger}
}

// Summary loads ticketID and describes its associations.
func (s *AssociationService) Summary(ctx context.Context, ticketID int64) (*domain.AssociationSummary, error) {
	if s.helpdesk == nil {
		return nil, apperrors.NewConfigurationError(HelpdeskNotConfigured)
	}
	ticket, err := s.helpdesk.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, helpdeskError(fmt.Sprintf("Failed to load ticket %d", ticketID), err)
	}

	summary := &domain.AssociationSummary{TicketID: ticketID, Type: ticket.Association()}
	switch summary.Type {
	case domain.AssociationTracker:
		err = s.trackerSummary(ctx, summary)
	case domain.AssociationRelated:
		err = s.relatedSummary(ctx, summary)
	default:
		summary.Message = msgNotAssociated
	}
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// trackerSummary groups the tickets linked to a tracker by district.
func (s *AssociationService) trackerSummary(ctx context.Context, summary *domain.AssociationSummary) error {
	tickets, err := s.helpdesk.GetAssociatedTickets(ctx, summary.TicketID)
	if err != nil {
		return helpdeskError("Failed to load associated tickets", err)
	}
	tickets = lo.UniqBy(tickets, func(t domain.Ticket) int64 { return t.ID })
	if len(tickets) == 0 {
		summary.Message = msgNoAssociated
		return nil
	}
	summary.Message = ticketCount(len(tickets))

	first := lo.MinBy(tickets, func(a, b domain.Ticket) bool { return a.CreatedAt.Before(b.CreatedAt) })
	firstRef := s.ref(first)
	firstRef.FirstReport = true
	summary.FirstReport = &firstRef

	withCompany := lo.Filter(tickets, func(t domain.Ticket, _ int) bool { return t.Company() != 0 })
	byCompany := lo.GroupBy(withCompany, func(t domain.Ticket) int64 { return t.Company() })
	if len(byCompany) == 0 {
		summary.Message = msgNoCompanies
		return nil
	}

	ids := lo.Keys(byCompany)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	groups := make([]domain.CompanyGroup, len(ids))
	for i, id := range ids {
		groups[i] = domain.CompanyGroup{
			CompanyID: id,
			Tickets: lo.Map(byCompany[id], func(t domain.Ticket, _ int) domain.TicketRef {
				r := s.ref(t)
				r.FirstReport = t.ID == first.ID
				return r
			}),
		}
	}
	s.nameCompanies(ctx, groups)

	summary.Groups = groups
	summary.Districts = len(groups)
	return nil
}

// nameCompanies resolves company names in parallel. A failed lookup marks
// its group and does not fail the summary.
func (s *AssociationService) nameCompanies(ctx context.Context, groups []domain.CompanyGroup) {
	if s.companies == nil {
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range groups {
		i := i
		g.Go(func() error {
			company, err := s.companies.Get(gctx, groups[i].CompanyID)
			if err != nil || company == nil {
				s.logger.Warn("company lookup failed", zap.Int64("company_id", groups[i].CompanyID), zap.Error(err))
				groups[i].Error = fmt.Sprintf("Could not load data for company ID: %d", groups[i].CompanyID)
				return nil
			}
			groups[i].CompanyName = company.Name
			return nil
		})
	}
	_ = g.Wait()
}

func (s *AssociationService) relatedSummary(ctx context.Context, summary *domain.AssociationSummary) error {
	tracker, err := s.helpdesk.GetPrimeAssociation(ctx, summary.TicketID)
	if freshdesk.IsNotFound(err) {
		summary.Message = msgNoTracker
		return nil
	}
	if err != nil {
		return helpdeskError("Failed to retrieve tracker ticket information", err)
	}
	if tracker == nil || tracker.ID == 0 {
		summary.Message = msgNoTracker
		return nil
	}
	ref := s.ref(*tracker)
	summary.Tracker = &ref
	summary.Message = fmt.Sprintf("Related to Tracker #%d", tracker.ID)
	return nil
}

func (s *AssociationService) ref(t domain.Ticket) domain.TicketRef {
	return domain.TicketRef{
		ID:        t.ID,
		Subject:   t.Subject,
		URL:       s.helpdesk.TicketURL(t.ID),
		CompanyID: t.Company(),
		CreatedAt: t.CreatedAt,
	}
}

func ticketCount(n int) string {
	return fmt.Sprintf("%d tickets found", n)
}
