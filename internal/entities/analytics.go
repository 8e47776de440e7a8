package entities

type AnalyticsOverview struct {
	TotalConversations         int     `json:"total_conversations"`
	TotalMessages              int     `json:"total_messages"`
	TotalLeads                 int     `json:"total_leads"`
	ConversationsToday         int     `json:"conversations_today"`
	AvgMessagesPerConversation float64 `json:"avg_messages_per_conversation"`
}

type DailyStat struct {
	Date          string `json:"date"`
	Conversations int    `json:"conversations"`
}

type PlatformStats struct {
	TotalUsers            int64 `json:"total_users"`
	TotalConversations    int64 `json:"total_conversations"`
	TotalProducts         int64 `json:"total_products"`
	TotalLeads            int64 `json:"total_leads"`
	TotalKnowledgeSources int64 `json:"total_knowledge_sources"`
	TotalMessages         int64 `json:"total_messages"`
}
