package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"studenthub/internal/fallback"
	"studenthub/internal/model"
	"studenthub/internal/repository"
	"studenthub/internal/service"
)

type queryOptions struct {
	kind     string
	location string
	search   string
	page     int
	filters  []string
}

func newQueryCmd(a *app) *cobra.Command {
	var opts queryOptions
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run one listing query through the orchestrator and print it as JSON",
		Long: `Runs a single listing query with the same retry and fallback rules the API uses.

Example:
  studenthub query --kind hostel --location Rajampeta --filter hostel_type=girls`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireDatabase(); err != nil {
				return err
			}
			q, err := opts.listingQuery()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			db, err := repository.Open(ctx, a.cfg.Database.Driver, a.cfg.Database.URL)
			if err != nil {
				return err
			}
			defer db.Close()
			fb, err := fallback.Load()
			if err != nil {
				return err
			}

			svc := service.NewListingService(repository.NewListingRepository(db), fb, a.retryPolicy(), a.logger)
			res, err := svc.Fetch(ctx, q)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(a.out)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Query      model.ListingQuery       `json:"query"`
				Result     model.ListingResult      `json:"result"`
				TotalPages int                      `json:"totalPages"`
				Status     service.ConnectionStatus `json:"status"`
			}{q, res, model.TotalPages(res.TotalCount), svc.Status()})
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.kind, "kind", string(model.KindHostel), "hostel, restaurant or place")
	f.StringVar(&opts.location, "location", "", "selected location; empty returns no rows")
	f.StringVar(&opts.search, "search", "", "search term matched against name and description")
	f.IntVar(&opts.page, "page", 1, "1-based page number")
	f.StringArrayVar(&opts.filters, "filter", nil, "name=value filter, repeatable")
	return cmd
}

func (o queryOptions) listingQuery() (model.ListingQuery, error) {
	kind, err := model.ParseKind(o.kind)
	if err != nil {
		return model.ListingQuery{}, err
	}
	q := model.ListingQuery{
		Kind:       kind,
		Page:       o.page,
		SearchTerm: o.search,
		Location:   o.location,
		Filters:    make(map[string]string, len(o.filters)),
	}
	for _, f := range o.filters {
		name, value, ok := strings.Cut(f, "=")
		if !ok {
			return model.ListingQuery{}, fmt.Errorf("%w: filter %q must be name=value", model.ErrInvalidQuery, f)
		}
		q.Filters[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return q, nil
}
