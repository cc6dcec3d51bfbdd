package guidance

import "strings"

// Family identifies which specialized context a marker belongs to.
type Family string

const (
	FamilyEventDriven   Family = "event-driven"
	FamilyCICD          Family = "cicd"
	FamilyConfiguration Family = "configuration"
	FamilyResilience    Family = "resilience"
)

// Marker is one classified fact extracted from guidance text: a category
// within a family plus the canonical value (e.g. resilience/tool/hystrix).
type Marker struct {
	Family   Family
	Category string
	Value    string
}

// Classifier extracts markers from guidance text. The default is keyword
// based; callers can inject their own to change classification without
// touching the manager.
type Classifier func(guidance string) []Marker

// keywordRule maps a lower-case keyword to the marker it produces.
type keywordRule struct {
	keyword string
	marker  Marker
}

var keywordRules = []keywordRule{
	// Event-driven architecture.
	{"kafka", Marker{FamilyEventDriven, "broker", "kafka"}},
	{"rabbitmq", Marker{FamilyEventDriven, "broker", "rabbitmq"}},
	{"sns", Marker{FamilyEventDriven, "broker", "aws-sns-sqs"}},
	{"sqs", Marker{FamilyEventDriven, "broker", "aws-sns-sqs"}},
	{"event sourcing", Marker{FamilyEventDriven, "pattern", "event-sourcing"}},
	{"saga", Marker{FamilyEventDriven, "pattern", "saga"}},
	{"idempotent", Marker{FamilyEventDriven, "pattern", "idempotent-consumer"}},
	{"dead letter", Marker{FamilyEventDriven, "pattern", "dead-letter-queue"}},

	// CI/CD.
	{"maven", Marker{FamilyCICD, "build-tool", "maven"}},
	{"gradle", Marker{FamilyCICD, "build-tool", "gradle"}},
	{"docker", Marker{FamilyCICD, "build-tool", "docker"}},
	{"jenkins", Marker{FamilyCICD, "pipeline", "jenkins"}},
	{"github actions", Marker{FamilyCICD, "pipeline", "github-actions"}},
	{"gitlab", Marker{FamilyCICD, "pipeline", "gitlab-ci"}},
	{"blue-green", Marker{FamilyCICD, "deployment", "blue-green"}},
	{"canary", Marker{FamilyCICD, "deployment", "canary"}},
	{"rolling", Marker{FamilyCICD, "deployment", "rolling"}},
	{"sast", Marker{FamilyCICD, "security-scan", "sast"}},
	{"dast", Marker{FamilyCICD, "security-scan", "dast"}},

	// Configuration management.
	{"spring cloud config", Marker{FamilyConfiguration, "source", "spring-cloud-config"}},
	{"consul", Marker{FamilyConfiguration, "source", "consul"}},
	{"etcd", Marker{FamilyConfiguration, "source", "etcd"}},
	{"vault", Marker{FamilyConfiguration, "secrets", "vault"}},
	{"kubernetes secret", Marker{FamilyConfiguration, "secrets", "kubernetes-secrets"}},
	{"feature flag", Marker{FamilyConfiguration, "feature-flags", "feature-flags"}},

	// Resilience.
	{"resilience4j", Marker{FamilyResilience, "tool", "resilience4j"}},
	{"hystrix", Marker{FamilyResilience, "tool", "hystrix"}},
	{"circuit breaker", Marker{FamilyResilience, "pattern", "circuit-breaker"}},
	{"exponential backoff", Marker{FamilyResilience, "pattern", "exponential-backoff"}},
	{"jitter", Marker{FamilyResilience, "pattern", "retry-jitter"}},
	{"bulkhead", Marker{FamilyResilience, "pattern", "bulkhead"}},
	{"chaos monkey", Marker{FamilyResilience, "practice", "chaos-engineering"}},
	{"health check", Marker{FamilyResilience, "practice", "health-checks"}},
	{"sli", Marker{FamilyResilience, "practice", "sli-slo"}},
	{"slo", Marker{FamilyResilience, "practice", "sli-slo"}},
}

// KeywordClassifier scans lower-cased guidance text against the keyword
// table. Repeated keywords yield one marker each; the manager deduplicates
// on apply, so classification is idempotent end to end.
func KeywordClassifier(guidance string) []Marker {
	text := strings.ToLower(guidance)
	var out []Marker
	for _, rule := range keywordRules {
		if strings.Contains(text, rule.keyword) {
			out = append(out, rule.marker)
		}
	}
	return out
}
