package service

const defaultDirectMessageThreshold = 80

// ChatGate es política de producto, no parte del cálculo: un overall por encima del umbral
// habilita el chat directo sin pasar por una solicitud pendiente.
type ChatGate struct {
	threshold int
}

func NewChatGate(threshold int) ChatGate {
	if threshold < 0 || threshold > 100 {
		threshold = defaultDirectMessageThreshold
	}
	return ChatGate{threshold: threshold}
}

func (g ChatGate) Threshold() int {
	return g.threshold
}

// CanMessageDirectly exige estrictamente más que el umbral.
func (g ChatGate) CanMessageDirectly(overall int) bool {
	return overall > g.threshold
}
