package ingestion

import (
	"strings"

	"github.com/rpattn/crmdash/internal/domain"
)

// FieldSpec is one canonical column of a data type with the header spellings that map to it.
type FieldSpec struct {
	Name     string
	Aliases  []string
	Required bool
}

var (
	customerFields = []FieldSpec{
		{Name: "name", Required: true, Aliases: []string{"company name", "company", "customer name", "customer", "企业名称", "公司名称", "客户名称", "名称"}},
		{Name: "registeredName", Aliases: []string{"registered name", "legal name", "注册名称", "法定名称"}},
		{Name: "localName", Aliases: []string{"local name", "本地名称", "中文名称"}},
		{Name: "tradeName", Aliases: []string{"trade name", "brand", "商号", "品牌"}},
		{Name: "globalOneId", Aliases: []string{"global one id", "globalone id", "duns", "全球编号"}},
		{Name: "industry", Aliases: []string{"sector", "行业"}},
		{Name: "industryCode", Aliases: []string{"industry code", "sic code", "行业代码"}},
		{Name: "businessType", Aliases: []string{"business type", "company type", "业务类型", "企业类型"}},
		{Name: "foundedDate", Aliases: []string{"founded", "founded date", "founded year", "成立日期", "成立时间"}},
		{Name: "operatingStatus", Aliases: []string{"status", "operating status", "运营状态", "经营状态"}},
		{Name: "isIndependent", Aliases: []string{"independent", "is independent", "是否独立"}},
		{Name: "registrationCountry", Aliases: []string{"country", "registration country", "国家", "注册国家"}},
		{Name: "registrationAddress", Aliases: []string{"address", "registration address", "地址", "注册地址"}},
		{Name: "registrationNumber", Aliases: []string{"registration number", "registration no", "注册号", "统一社会信用代码"}},
		{Name: "website", Aliases: []string{"web", "url", "网站", "官网"}},
		{Name: "phone", Aliases: []string{"telephone", "tel", "电话"}},
		{Name: "email", Aliases: []string{"e-mail", "mail", "邮箱", "电子邮件"}},
		{Name: "capitalAmount", Aliases: []string{"capital", "registered capital", "capital amount", "注册资本"}},
		{Name: "capitalCurrency", Aliases: []string{"capital currency", "注册资本币种"}},
		{Name: "annualRevenue", Aliases: []string{"revenue", "annual revenue", "年收入", "营业收入"}},
		{Name: "revenueCurrency", Aliases: []string{"revenue currency", "收入币种"}},
		{Name: "revenueYear", Aliases: []string{"revenue year", "收入年份"}},
		{Name: "employeeCount", Aliases: []string{"employees", "employee count", "headcount", "员工数", "员工人数"}},
		{Name: "stockExchange", Aliases: []string{"stock exchange", "exchange", "交易所", "上市交易所"}},
		{Name: "stockSymbol", Aliases: []string{"stock symbol", "ticker", "股票代码"}},
		{Name: "riskLevel", Aliases: []string{"risk", "risk level", "风险等级"}},
		{Name: "riskDescription", Aliases: []string{"risk description", "风险描述"}},
		{Name: "ceoName", Aliases: []string{"ceo", "ceo name", "首席执行官", "总经理"}},
		{Name: "description", Aliases: []string{"company description", "描述", "简介"}},
		{Name: "notes", Aliases: []string{"note", "remarks", "备注"}},
	}

	subsidiaryFields = []FieldSpec{
		{Name: "name", Required: true, Aliases: []string{"subsidiary name", "subsidiary", "entity name", "子公司名称", "子公司", "名称"}},
		{Name: "parentName", Aliases: []string{"parent name", "parent company", "parent", "customer name", "parent subsidiary", "母公司", "母公司名称", "上级公司", "上级子公司"}},
		{Name: "customerId", Aliases: []string{"customer id", "parent id", "客户编号", "客户id"}},
		{Name: "localName", Aliases: []string{"local name", "本地名称"}},
		{Name: "entityType", Aliases: []string{"type", "entity type", "类型", "实体类型"}},
		{Name: "ownershipPercentage", Aliases: []string{"ownership", "ownership percentage", "ownership %", "持股比例"}},
		{Name: "country", Aliases: []string{"国家"}},
		{Name: "region", Aliases: []string{"state", "province", "地区", "省份"}},
		{Name: "city", Aliases: []string{"城市"}},
		{Name: "address", Aliases: []string{"地址"}},
		{Name: "latitude", Aliases: []string{"lat", "纬度"}},
		{Name: "longitude", Aliases: []string{"lng", "lon", "long", "经度"}},
		{Name: "industry", Aliases: []string{"sector", "行业"}},
		{Name: "operatingStatus", Aliases: []string{"status", "operating status", "运营状态"}},
		{Name: "employeeCount", Aliases: []string{"employees", "employee count", "员工数"}},
		{Name: "annualRevenue", Aliases: []string{"revenue", "annual revenue", "年收入"}},
		{Name: "revenueCurrency", Aliases: []string{"revenue currency", "收入币种"}},
		{Name: "relationshipType", Aliases: []string{"relationship", "relationship type", "关系类型"}},
		{Name: "description", Aliases: []string{"描述"}},
	}

	opportunityFields = []FieldSpec{
		{Name: "name", Required: true, Aliases: []string{"opportunity name", "opportunity", "商机名称", "商机", "名称"}},
		{Name: "customerName", Required: true, Aliases: []string{"customer", "customer name", "company", "company name", "客户", "客户名称", "公司名称"}},
		{Name: "productType", Aliases: []string{"product", "product type", "产品", "产品类型"}},
		{Name: "stage", Aliases: []string{"pipeline stage", "阶段"}},
		{Name: "amount", Aliases: []string{"value", "opportunity amount", "金额", "商机金额"}},
		{Name: "currency", Aliases: []string{"币种", "货币"}},
		{Name: "probability", Aliases: []string{"win probability", "probability %", "概率", "成交概率"}},
		{Name: "expectedCloseDate", Aliases: []string{"expected close date", "close date", "预计成交日期"}},
		{Name: "description", Aliases: []string{"描述"}},
		{Name: "notes", Aliases: []string{"note", "备注"}},
	}

	dealFields = []FieldSpec{
		{Name: "name", Required: true, Aliases: []string{"deal name", "deal", "成单名称", "订单名称", "名称"}},
		{Name: "customerName", Required: true, Aliases: []string{"customer", "customer name", "company", "company name", "客户", "客户名称", "公司名称"}},
		{Name: "productType", Aliases: []string{"product", "product type", "产品", "产品类型"}},
		{Name: "amount", Aliases: []string{"value", "deal amount", "金额", "成交金额"}},
		{Name: "currency", Aliases: []string{"币种", "货币"}},
		{Name: "closedDate", Aliases: []string{"closed date", "close date", "closed", "成交日期", "成单日期"}},
		{Name: "status", Aliases: []string{"状态"}},
		{Name: "notes", Aliases: []string{"note", "备注"}},
	}

	newsFields = []FieldSpec{
		{Name: "title", Required: true, Aliases: []string{"headline", "news title", "标题", "新闻标题"}},
		{Name: "customerName", Required: true, Aliases: []string{"customer", "customer name", "company", "company name", "客户", "客户名称", "公司名称"}},
		{Name: "summary", Aliases: []string{"摘要"}},
		{Name: "content", Aliases: []string{"body", "内容", "正文"}},
		{Name: "sourceUrl", Aliases: []string{"url", "source url", "link", "链接"}},
		{Name: "sourceName", Aliases: []string{"source", "source name", "来源"}},
		{Name: "publishedDate", Aliases: []string{"published", "published date", "date", "发布日期", "日期"}},
		{Name: "category", Aliases: []string{"类别", "分类"}},
		{Name: "sentiment", Aliases: []string{"情感", "情绪"}},
		{Name: "relevanceScore", Aliases: []string{"relevance", "relevance score", "相关度"}},
	}

	projectFields = []FieldSpec{
		{Name: "originalId", Aliases: []string{"id", "project id", "original id", "项目编号"}},
		{Name: "name", Required: true, Aliases: []string{"project name", "project", "项目名称", "名称"}},
		{Name: "investment", Aliases: []string{"investment amount", "budget", "投资额", "投资金额"}},
		{Name: "country", Aliases: []string{"国家"}},
		{Name: "sector", Aliases: []string{"industry", "行业"}},
		{Name: "stage", Aliases: []string{"project stage", "阶段"}},
		{Name: "contractor", Aliases: []string{"承包商"}},
		{Name: "startDate", Aliases: []string{"start date", "start", "开工日期", "开始日期"}},
		{Name: "summary", Aliases: []string{"description", "摘要", "描述"}},
	}

	recommendationFields = []FieldSpec{
		{Name: "projectId", Required: true, Aliases: []string{"project id", "project", "项目编号"}},
		{Name: "productName", Required: true, Aliases: []string{"product", "product name", "产品", "产品名称"}},
		{Name: "rank", Aliases: []string{"ranking", "排名"}},
		{Name: "confidence", Aliases: []string{"置信度"}},
		{Name: "aiScore", Aliases: []string{"score", "ai score", "评分"}},
	}

	fieldTables = map[domain.DataType][]FieldSpec{
		domain.DataTypeCustomer:       customerFields,
		domain.DataTypeSubsidiary:     subsidiaryFields,
		domain.DataTypeOpportunity:    opportunityFields,
		domain.DataTypeDeal:           dealFields,
		domain.DataTypeNews:           newsFields,
		domain.DataTypeProject:        projectFields,
		domain.DataTypeRecommendation: recommendationFields,
	}

	aliasIndex = buildAliasIndex()
)

func buildAliasIndex() map[domain.DataType]map[string]string {
	index := make(map[domain.DataType]map[string]string, len(fieldTables))
	for dt, fields := range fieldTables {
		m := make(map[string]string)
		for _, f := range fields {
			m[strings.ToLower(f.Name)] = f.Name
			for _, alias := range f.Aliases {
				m[strings.ToLower(strings.TrimSpace(alias))] = f.Name
			}
		}
		index[dt] = m
	}
	return index
}

// Fields returns the canonical columns of a data type in template order.
func Fields(dataType domain.DataType) []FieldSpec {
	fields := fieldTables[dataType]
	out := make([]FieldSpec, len(fields))
	copy(out, fields)
	return out
}

// CanonicalHeader maps a header to its canonical field name, or returns it trimmed when unknown.
func CanonicalHeader(dataType domain.DataType, header string) string {
	trimmed := strings.TrimSpace(header)
	if canonical, ok := aliasIndex[dataType][strings.ToLower(trimmed)]; ok {
		return canonical
	}
	return trimmed
}

func fieldCandidates(dataType domain.DataType, field string) []string {
	for _, f := range fieldTables[dataType] {
		if f.Name == field {
			return append([]string{f.Name}, f.Aliases...)
		}
	}
	return []string{field}
}
