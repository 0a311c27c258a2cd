package events

// Topic constants for document lifecycle events.
const (
	TopicDocumentCreated = "document.created"
	TopicDocumentIssued  = "document.issued"
	TopicDocumentPaid    = "document.paid"
	TopicDocumentVoided  = "document.voided"
	TopicDocumentDeleted = "document.deleted"
)

// DefaultTopics returns every topic the billing service emits.
func DefaultTopics() []string {
	return []string{
		TopicDocumentCreated,
		TopicDocumentIssued,
		TopicDocumentPaid,
		TopicDocumentVoided,
		TopicDocumentDeleted,
	}
}
