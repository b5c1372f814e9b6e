package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"trainrx/internal/catalog"
	"trainrx/internal/types"
)

// RuleStoreSuite runs the same checks against both SQLite drivers.
type RuleStoreSuite struct {
	suite.Suite
	driver string
	store  *RuleStore
	ctx    context.Context
}

func (s *RuleStoreSuite) SetupTest() {
	s.ctx = context.Background()
	path := filepath.Join(s.T().TempDir(), "rules.db")
	st, err := Open(s.driver, path)
	if err != nil && s.driver == DriverCGO {
		s.T().Skipf("cgo sqlite driver unavailable: %v", err)
	}
	s.Require().NoError(err)
	s.store = st
}

func (s *RuleStoreSuite) TearDownTest() {
	if s.store != nil {
		s.store.Close()
		s.store = nil
	}
}

func (s *RuleStoreSuite) importTestdata() ImportStats {
	c, err := catalog.Load(filepath.Join("..", "catalog", "testdata"))
	s.Require().NoError(err)
	stats, err := s.store.ImportCatalog(s.ctx, c)
	s.Require().NoError(err)
	return stats
}

func mustCatalog(s *RuleStoreSuite, doc string) *catalog.Catalog {
	f, err := catalog.Parse([]byte(doc), "inline.yaml")
	s.Require().NoError(err)
	c, err := catalog.New(f)
	s.Require().NoError(err)
	return c
}

func (s *RuleStoreSuite) TestImportAndList() {
	stats := s.importTestdata()
	s.Equal(ImportStats{Versions: 2, Rules: 5}, stats)

	rules, err := s.store.ListRules(s.ctx, "clinic-a", "v2")
	s.Require().NoError(err)
	ids := make([]string, len(rules))
	for i, r := range rules {
		ids[i] = r.ID
	}
	s.Equal([]string{"critical", "high-early", "high-late", "low-late"}, ids)

	highEarly := rules[1]
	s.Equal(types.PriorityHigh, highEarly.Priority)
	s.True(highEarly.CreatedAt.Equal(time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)))
	s.Equal(types.OpIn, highEarly.Condition.All[0].Op)
	s.Equal(types.ListOperand(types.Text("strength"), types.Text("health")), highEarly.Condition.All[0].Value)
	s.Equal(types.Range{3, 6}, *highEarly.Outputs.Resistance.SeriesRange)
}

func (s *RuleStoreSuite) TestResolveVersion() {
	s.importTestdata()

	v, err := s.store.ResolveVersion(s.ctx, "clinic-a", types.DefaultVersion)
	s.Require().NoError(err)
	s.Equal("v2", v.ID)
	s.Equal("clinic-a", v.Tenant)
	s.True(v.IsDefault)

	v, err = s.store.ResolveVersion(s.ctx, "clinic-a", "v1")
	s.Require().NoError(err)
	s.Equal(types.StatusArchived, v.Status)
	s.Equal("Previous", v.Label)

	_, err = s.store.ResolveVersion(s.ctx, "clinic-b", "v2")
	s.ErrorIs(err, types.ErrNotFound)
}

func (s *RuleStoreSuite) TestReimportReplacesRules() {
	s.importTestdata()

	c := mustCatalog(s, `
tenant: clinic-a
versions:
  - id: v2
    default: true
    rules:
      - {id: only, priority: low, condition: {all: [{tag: age, op: gt, val: 1}]}}
`)
	_, err := s.store.ImportCatalog(s.ctx, c)
	s.Require().NoError(err)

	rules, err := s.store.ListRules(s.ctx, "clinic-a", "v2")
	s.Require().NoError(err)
	s.Len(rules, 1)
	s.Equal("only", rules[0].ID)

	versions, err := s.store.ListVersions(s.ctx, "clinic-a")
	s.Require().NoError(err)
	s.Len(versions, 2)
	s.Equal("v2", versions[0].ID)
	s.Equal(1, versions[0].RuleCount)
}

func (s *RuleStoreSuite) TestDefaultMovesBetweenImports() {
	s.importTestdata()

	c := mustCatalog(s, `
tenant: clinic-a
versions:
  - id: v3
    default: true
    rules:
      - {id: newer, priority: medium, condition: {all: [{tag: age, op: gt, val: 1}]}}
`)
	_, err := s.store.ImportCatalog(s.ctx, c)
	s.Require().NoError(err)

	v, err := s.store.ResolveVersion(s.ctx, "clinic-a", types.DefaultVersion)
	s.Require().NoError(err)
	s.Equal("v3", v.ID)

	old, err := s.store.ResolveVersion(s.ctx, "clinic-a", "v2")
	s.Require().NoError(err)
	s.False(old.IsDefault)
}

func (s *RuleStoreSuite) TestRejectsEmptyPublishedVersion() {
	c := mustCatalog(s, "tenant: t\nversions:\n  - id: empty\n    rules: []\n")
	_, err := s.store.ImportCatalog(s.ctx, c)
	s.ErrorIs(err, ErrEmptyVersion)

	_, err = s.store.ResolveVersion(s.ctx, "t", "empty")
	s.ErrorIs(err, types.ErrNotFound)
}

func (s *RuleStoreSuite) TestUnknownVersionHasNoRules() {
	rules, err := s.store.ListRules(s.ctx, "nobody", "v1")
	s.Require().NoError(err)
	s.Empty(rules)
	s.NotNil(rules)
}

func TestRuleStore_PureGo(t *testing.T) {
	suite.Run(t, &RuleStoreSuite{driver: DriverPureGo})
}

func TestRuleStore_CGO(t *testing.T) {
	suite.Run(t, &RuleStoreSuite{driver: DriverCGO})
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("postgres", filepath.Join(t.TempDir(), "x.db"))
	if err == nil {
		t.Fatal("expected an error for an unsupported driver")
	}
}
