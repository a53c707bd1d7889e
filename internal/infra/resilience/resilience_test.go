package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryWithBackoffSucessoImediato(t *testing.T) {
	chamadas := 0
	err := RetryWithBackoff(context.Background(), Config{MaxRetries: 3, InitialBackoff: time.Millisecond}, func() error {
		chamadas++
		return nil
	})
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if chamadas != 1 {
		t.Errorf("chamadas = %d, want 1", chamadas)
	}
}

func TestRetryWithBackoffEsgotaTentativas(t *testing.T) {
	sentinela := errors.New("falhou")
	chamadas := 0
	err := RetryWithBackoff(context.Background(), Config{MaxRetries: 2, InitialBackoff: time.Millisecond}, func() error {
		chamadas++
		return sentinela
	})
	if !errors.Is(err, sentinela) {
		t.Errorf("err = %v, want sentinela", err)
	}
	if chamadas != 3 {
		t.Errorf("chamadas = %d, want 3 (1 + 2 retries)", chamadas)
	}
}

func TestRetryWithBackoffRecupera(t *testing.T) {
	chamadas := 0
	err := RetryWithBackoff(context.Background(), Config{MaxRetries: 3, InitialBackoff: time.Millisecond}, func() error {
		chamadas++
		if chamadas < 2 {
			return errors.New("transiente")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if chamadas != 2 {
		t.Errorf("chamadas = %d, want 2", chamadas)
	}
}

func TestRetryWithBackoffContextoCancelado(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, DefaultConfig(), func() error {
		t.Error("fn não deveria ser chamada com contexto cancelado")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestNewCircuitBreakerAbreAposFalhas(t *testing.T) {
	cb := NewCircuitBreaker("teste")
	falha := errors.New("upstream fora")

	for i := 0; i < 5; i++ {
		_, _ = cb.Execute(func() (any, error) { return nil, falha })
	}

	_, err := cb.Execute(func() (any, error) { return nil, nil })
	if err == nil {
		t.Error("breaker deveria estar aberto após 5 falhas seguidas")
	}
}
