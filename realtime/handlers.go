package realtime

import "encoding/json"

// Event types published by the API.
const (
	EventConnected          = "CONNECTED"
	EventCadastroCriado     = "CADASTRO_CRIADO"
	EventCadastroSubmetido  = "CADASTRO_SUBMETIDO"
	EventCadastroAprovado   = "CADASTRO_APROVADO"
	EventCadastroPendente   = "CADASTRO_PENDENTE"
	EventCadastroCancelado  = "CADASTRO_CANCELADO"
	EventPagamentoRecebido  = "PAGAMENTO_RECEBIDO"
	EventContratoGerado     = "CONTRATO_GERADO"
	EventContratoAssinado   = "CONTRATO_ASSINADO"
	EventCadastroConcluido  = "CADASTRO_CONCLUIDO"
	EventComprovantesAnexos = "COMPROVANTES_ANEXADOS"
	EventEnviadoNuvideo     = "ENVIADO_NUVIDEO"
)

// On returns a handler set that calls fn for each of eventTypes, ignoring
// the payload.
func On(fn func(), eventTypes ...string) Handlers {
	h := make(Handlers, len(eventTypes))
	for _, t := range eventTypes {
		h[t] = func(json.RawMessage) { fn() }
	}
	return h
}

// Merge combines handler sets. Types handled by more than one set call each
// handler in argument order.
func Merge(sets ...Handlers) Handlers {
	out := Handlers{}
	for _, set := range sets {
		for eventType, fn := range set {
			prev, ok := out[eventType]
			if !ok {
				out[eventType] = fn
				continue
			}
			out[eventType] = func(data json.RawMessage) {
				prev(data)
				fn(data)
			}
		}
	}
	return out
}

// CadastrosHandlers refreshes the cadastro list on every cadastro status
// change.
func CadastrosHandlers(refresh func()) Handlers {
	return On(refresh,
		EventCadastroCriado,
		EventCadastroSubmetido,
		EventCadastroAprovado,
		EventCadastroPendente,
		EventCadastroCancelado,
		EventCadastroConcluido,
	)
}

// AnaliseHandlers refreshes the analysis queue.
func AnaliseHandlers(refresh func()) Handlers {
	return On(refresh,
		EventCadastroSubmetido,
		EventCadastroAprovado,
		EventCadastroPendente,
		EventCadastroCancelado,
	)
}

// TesourariaHandlers refreshes the treasury view on approvals, payments and
// contracts.
func TesourariaHandlers(refresh func()) Handlers {
	return On(refresh,
		EventCadastroAprovado,
		EventPagamentoRecebido,
		EventContratoGerado,
		EventContratoAssinado,
		EventCadastroConcluido,
	)
}
