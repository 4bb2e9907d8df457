package requirement_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	catmodels "benefitflow/internal/catalog/models"
	catalogstore "benefitflow/internal/catalog/store"
	docmodels "benefitflow/internal/documents/models"
	docstore "benefitflow/internal/documents/store"
	"benefitflow/internal/requirement"
	id "benefitflow/pkg/domain"
	dErrors "benefitflow/pkg/domain-errors"
)

type ServiceSuite struct {
	suite.Suite
	ctx       context.Context
	asOf      time.Time
	profileID id.ProfileID
	catalog   *catalogstore.InMemoryStore
	documents *docstore.InMemoryStore
	svc       *requirement.Service
}

func mustUUID(s string) uuid.UUID {
	return uuid.MustParse(s)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.asOf = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	var err error
	s.profileID, err = id.ParseProfileID("8f0a32cc-58d8-4f92-9b1e-6f3d2ec5a001")
	s.Require().NoError(err)

	s.catalog = catalogstore.NewInMemory("v1",
		[]*catmodels.Scheme{
			{
				ID: "pension-credit",
				RequiredDocs: []catmodels.RequiredDocument{
					{Type: "proof-of-identity", Mandatory: true},
					{Type: "income-statement", Mandatory: true},
				},
			},
		},
		[]*catmodels.DocumentType{
			{ID: "proof-of-identity", Category: "identity"},
			{ID: "income-statement", Category: "finance",
				Prerequisites: []id.DocumentTypeID{"proof-of-identity"}},
		},
	)
	s.documents = docstore.NewInMemory()

	s.svc, err = requirement.New(s.catalog, s.documents)
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestBuildGraph() {
	s.Run("builds the graph for known schemes", func() {
		graph, err := s.svc.BuildGraph(s.ctx, []id.SchemeID{"pension-credit"})
		s.Require().NoError(err)
		s.Len(graph.Nodes, 2)
		s.Equal([]id.DocumentTypeID{"proof-of-identity", "income-statement"}, graph.TopoOrder)
	})

	s.Run("unknown scheme maps to not found", func() {
		_, err := s.svc.BuildGraph(s.ctx, []id.SchemeID{"ghost"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("empty scheme list rejected", func() {
		_, err := s.svc.BuildGraph(s.ctx, nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *ServiceSuite) TestResolveReuse() {
	s.Run("classifies held documents against the graph", func() {
		never := (*time.Time)(nil)
		s.documents.Seed(&docmodels.HeldDocument{
			ID:           mustUUID("0d9a2c70-4f3b-4bfb-90dd-b2a42f1f2a10"),
			ProfileID:    s.profileID,
			Type:         "proof-of-identity",
			IssuedAt:     s.asOf.Add(-90 * 24 * time.Hour),
			ExpiresAt:    never,
			Verification: docmodels.VerificationVerified,
		})

		graph, resolutions, err := s.svc.ResolveReuse(s.ctx, s.profileID, []id.SchemeID{"pension-credit"}, s.asOf)
		s.Require().NoError(err)
		s.Len(graph.Nodes, 2)
		s.Require().Len(resolutions, 2)

		byType := make(map[id.DocumentTypeID]requirement.Resolution)
		for _, r := range resolutions {
			byType[r.Type] = r
		}
		s.Equal(requirement.DecisionReuseExisting, byType["proof-of-identity"].Decision)
		s.Equal(requirement.DecisionFetchNew, byType["income-statement"].Decision)
	})

	s.Run("nil profile id rejected", func() {
		_, _, err := s.svc.ResolveReuse(s.ctx, id.ProfileID{}, []id.SchemeID{"pension-credit"}, s.asOf)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}
