package requirement

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	catmodels "benefitflow/internal/catalog/models"
	catalogstore "benefitflow/internal/catalog/store"
	id "benefitflow/pkg/domain"
	dErrors "benefitflow/pkg/domain-errors"
)

type BuilderSuite struct {
	suite.Suite
	ctx context.Context
}

func TestBuilderSuite(t *testing.T) {
	suite.Run(t, new(BuilderSuite))
}

func (s *BuilderSuite) SetupTest() {
	s.ctx = context.Background()
}

func docType(typeID string, prereqs ...string) *catmodels.DocumentType {
	dt := &catmodels.DocumentType{
		ID:              id.DocumentTypeID(typeID),
		Category:        "identity",
		EstimatedEffort: 24 * time.Hour,
	}
	for _, p := range prereqs {
		dt.Prerequisites = append(dt.Prerequisites, id.DocumentTypeID(p))
	}
	return dt
}

func schemeRequiring(schemeID string, docs ...catmodels.RequiredDocument) *catmodels.Scheme {
	return &catmodels.Scheme{ID: id.SchemeID(schemeID), RequiredDocs: docs}
}

func (s *BuilderSuite) TestBuild() {
	s.Run("shared document type yields one node across schemes", func() {
		store := catalogstore.NewInMemory("v1", nil, []*catmodels.DocumentType{
			docType("proof-of-identity"),
			docType("proof-of-income", "proof-of-identity"),
			docType("residence-permit", "proof-of-identity"),
		})
		schemes := []*catmodels.Scheme{
			schemeRequiring("scheme-a",
				catmodels.RequiredDocument{Type: "proof-of-income", Mandatory: true}),
			schemeRequiring("scheme-b",
				catmodels.RequiredDocument{Type: "residence-permit", Mandatory: true}),
		}

		graph, err := Build(s.ctx, schemes, store)
		s.Require().NoError(err)
		s.Len(graph.Nodes, 3)

		// The shared prerequisite appears once and both dependents hang off it.
		s.Equal([]id.DocumentTypeID{"proof-of-income", "residence-permit"},
			graph.Dependents("proof-of-identity"))
	})

	s.Run("prerequisites ordered before dependents", func() {
		store := catalogstore.NewInMemory("v1", nil, []*catmodels.DocumentType{
			docType("a"),
			docType("b", "a"),
			docType("c", "b"),
		})
		graph, err := Build(s.ctx, []*catmodels.Scheme{
			schemeRequiring("s", catmodels.RequiredDocument{Type: "c", Mandatory: true}),
		}, store)
		s.Require().NoError(err)
		s.Equal([]id.DocumentTypeID{"a", "b", "c"}, graph.TopoOrder)
	})

	s.Run("topological order is deterministic for sibling nodes", func() {
		store := catalogstore.NewInMemory("v1", nil, []*catmodels.DocumentType{
			docType("root"),
			docType("zeta", "root"),
			docType("alpha", "root"),
			docType("mid", "root"),
		})
		scheme := schemeRequiring("s",
			catmodels.RequiredDocument{Type: "zeta"},
			catmodels.RequiredDocument{Type: "alpha"},
			catmodels.RequiredDocument{Type: "mid"},
		)
		want := []id.DocumentTypeID{"root", "alpha", "mid", "zeta"}
		for i := 0; i < 10; i++ {
			graph, err := Build(s.ctx, []*catmodels.Scheme{scheme}, store)
			s.Require().NoError(err)
			s.Equal(want, graph.TopoOrder)
		}
	})

	s.Run("unknown document type names the id", func() {
		store := catalogstore.NewInMemory("v1", nil, []*catmodels.DocumentType{
			docType("known", "ghost"),
		})
		_, err := Build(s.ctx, []*catmodels.Scheme{
			schemeRequiring("s", catmodels.RequiredDocument{Type: "known"}),
		}, store)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(err.Error(), "ghost")
	})

	s.Run("mandatory propagates down prerequisite chains", func() {
		store := catalogstore.NewInMemory("v1", nil, []*catmodels.DocumentType{
			docType("base"),
			docType("middle", "base"),
			docType("top", "middle"),
			docType("aside"),
		})
		graph, err := Build(s.ctx, []*catmodels.Scheme{
			schemeRequiring("s",
				catmodels.RequiredDocument{Type: "top", Mandatory: true},
				catmodels.RequiredDocument{Type: "aside", Mandatory: false},
			),
		}, store)
		s.Require().NoError(err)
		s.True(graph.Nodes["top"].Mandatory)
		s.True(graph.Nodes["middle"].Mandatory)
		s.True(graph.Nodes["base"].Mandatory)
		s.False(graph.Nodes["aside"].Mandatory)
	})

	s.Run("mandatory wins when schemes disagree", func() {
		store := catalogstore.NewInMemory("v1", nil, []*catmodels.DocumentType{
			docType("shared"),
		})
		graph, err := Build(s.ctx, []*catmodels.Scheme{
			schemeRequiring("lenient", catmodels.RequiredDocument{Type: "shared", Mandatory: false}),
			schemeRequiring("strict", catmodels.RequiredDocument{Type: "shared", Mandatory: true}),
		}, store)
		s.Require().NoError(err)
		s.True(graph.Nodes["shared"].Mandatory)
		s.Equal([]id.SchemeID{"lenient", "strict"}, graph.Nodes["shared"].RequiredBy)
	})
}

func (s *BuilderSuite) TestCycleDetection() {
	s.Run("direct cycle names both participants", func() {
		store := catalogstore.NewInMemory("v1", nil, []*catmodels.DocumentType{
			docType("a", "b"),
			docType("b", "a"),
		})
		_, err := Build(s.ctx, []*catmodels.Scheme{
			schemeRequiring("s", catmodels.RequiredDocument{Type: "a"}),
		}, store)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeCycleDetected))
		s.Contains(err.Error(), "a")
		s.Contains(err.Error(), "b")
	})

	s.Run("longer cycle reports the full path", func() {
		store := catalogstore.NewInMemory("v1", nil, []*catmodels.DocumentType{
			docType("x", "y"),
			docType("y", "z"),
			docType("z", "x"),
		})
		_, err := Build(s.ctx, []*catmodels.Scheme{
			schemeRequiring("s", catmodels.RequiredDocument{Type: "x"}),
		}, store)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeCycleDetected))
		for _, participant := range []string{"x", "y", "z"} {
			s.Contains(err.Error(), participant)
		}
	})

	s.Run("self-prerequisite is a cycle", func() {
		store := catalogstore.NewInMemory("v1", nil, []*catmodels.DocumentType{
			docType("selfie", "selfie"),
		})
		_, err := Build(s.ctx, []*catmodels.Scheme{
			schemeRequiring("s", catmodels.RequiredDocument{Type: "selfie"}),
		}, store)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeCycleDetected))
	})

	s.Run("diamond is not a cycle", func() {
		store := catalogstore.NewInMemory("v1", nil, []*catmodels.DocumentType{
			docType("base"),
			docType("left", "base"),
			docType("right", "base"),
			docType("apex", "left", "right"),
		})
		graph, err := Build(s.ctx, []*catmodels.Scheme{
			schemeRequiring("s", catmodels.RequiredDocument{Type: "apex"}),
		}, store)
		s.Require().NoError(err)
		s.Equal([]id.DocumentTypeID{"base", "left", "right", "apex"}, graph.TopoOrder)
	})
}
