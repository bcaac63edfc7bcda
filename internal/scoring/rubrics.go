package scoring

import "github.com/sells-group/acquisition-engine/internal/model"

// Rubrics for the judged dimensions. The scale text must agree with
// model.DimensionRanges; the judge clamps anything outside it.
var dimensionRubrics = map[model.Dimension]string{
	model.DimVMSFocus: `
Analyze how specialized this company's software is for specific vertical markets.

VMS (Vertical Market Software) characteristics to look for:
- Industry-specific terminology and features
- Compliance with industry regulations
- Workflow specific to the vertical
- Deep domain expertise requirements
- Industry-specific integrations

Score 1-5 where:
5 = Highly specialized for specific vertical (e.g., dental practice management)
4 = Mostly vertical with some horizontal features
3 = Mixed vertical/horizontal approach
2 = Mostly horizontal with vertical adaptations
1 = Pure horizontal solution (e.g., generic CRM)
`,

	model.DimRevenueModel: `
Analyze the company's revenue composition between software and services.

Look for indicators of:
- Software license revenue vs consulting/implementation fees
- Recurring subscription revenue vs one-time services
- Product revenue vs professional services
- SaaS model vs custom development

Score 1-5 where:
5 = 90%+ software revenue (pure SaaS/license model)
4 = 75-90% software revenue
3 = 60-75% software revenue
2 = 40-60% software revenue
1 = Less than 40% software revenue (service-heavy)
`,

	model.DimSuiteVsPoint: `
Analyze whether this is a comprehensive suite or point solution.

Suite characteristics:
- Multiple integrated modules/products
- End-to-end workflow coverage
- Unified platform approach
- Cross-module data sharing

Point solution characteristics:
- Single primary function/use case
- Narrow problem focus
- Standalone application

Score 1-5 where:
5 = Complete integrated suite covering entire workflow
4 = Suite with most core modules present
3 = Modular platform approach with key integrations
2 = Point solution with some integrations
1 = Pure point solution, single function
`,

	model.DimCustomerQuality: `
Analyze the barriers to entry and customer stickiness in target markets.

High-quality customer indicators:
- Regulated industries with compliance requirements
- High switching costs
- Mission-critical applications
- Specialized expertise required
- Long implementation cycles

Score 1-5 where:
5 = Very high barriers, extremely sticky customers (healthcare, finance)
4 = High barriers, good retention (specialized professional services)
3 = Moderate barriers, average retention
2 = Low barriers, price-sensitive customers
1 = Commodity market, high churn potential
`,
}

// Rubrics for the judged qualification questions. Questions share a 1-10
// scale so the weighted qualification average lands on the same scale as
// the quality threshold.
var questionRubrics = map[model.Question]string{
	model.Q1HorizontalVsVertical: `
Assess whether the company is vertically focused on a specific industry or
sells horizontally across many industries.

Score 1-10 where:
8-10 = Deeply vertical, single-industry focus
6-7  = Mostly vertical with limited horizontal reach
4-5  = Mixed approach
1-3  = Horizontal, industry-agnostic product
`,

	model.Q2PointVsSuite: `
Assess whether the company sells a comprehensive product suite or a point
solution.

Score 1-10 where:
8-10 = Comprehensive integrated suite
6-7  = Modular platform with multiple products
4-5  = Point solution with some integrations
1-3  = Single-function point solution
`,

	model.Q3MissionCritical: `
Assess how mission-critical the product is to its customers' operations.
Compliance, audit, uptime, and core-workflow evidence all indicate
criticality; productivity and convenience tooling does not.

Score 1-10 where:
8-10 = Business stops without it (system of record, compliance-mandated)
6-7  = Important to daily operations
4-5  = Useful but replaceable
1-3  = Nice to have
`,

	model.Q4OPMVsPrivate: `
Assess the company's dependence on government (other people's money) versus
private-sector revenue.

Score 1-10 where:
9-10 = Entirely private-sector revenue
7-8  = Mostly private with some government exposure
4-6  = Mixed or unclear
1-3  = Heavily dependent on government funding
`,
}
