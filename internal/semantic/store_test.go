package semantic_test

import (
	"context"

	"github.com/envelope-zero/planner/internal/models"
	"github.com/envelope-zero/planner/internal/rules"
	"github.com/envelope-zero/planner/internal/semantic"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *TestSuiteStandard) TestReviewEntry() {
	d := suite.createTestDepartment("DTC")
	e := suite.createTestEntry(models.Entry{
		DepartmentID: &d.ID,
		Name:         "Modernizacja sieci",
		Paragraph:    4270,
		Amounts:      models.Amounts{Amount2025: decimal.NewFromInt(80000)},
	})

	c := semantic.NewChecker(semantic.NewRuleAdvisor(rules.Default()))

	v, err := c.ReviewEntry(context.Background(), models.DB, e.ID)
	require.Nil(suite.T(), err)
	assert.False(suite.T(), v.IsCompliant)
	assert.Equal(suite.T(), semantic.RiskHigh, v.RiskLevel)

	_, err = c.ReviewEntry(context.Background(), models.DB, uuid.New())
	assert.ErrorIs(suite.T(), err, models.ErrResourceNotFound)
}

func (suite *TestSuiteStandard) TestContext() {
	d := suite.createTestDepartment("DSI")
	e := models.Entry{Name: "Serwery", Paragraph: 6060, Department: &d, Amounts: models.Amounts{Amount2025: decimal.NewFromInt(12)}}

	c := semantic.Context(e)
	assert.Contains(suite.T(), c, "Name: Serwery")
	assert.Contains(suite.T(), c, "Amount 2025: 12 thousand PLN")
	assert.Contains(suite.T(), c, "Department: DSI")
}
