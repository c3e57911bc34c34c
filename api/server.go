package api

import (
	"context"
	"math/big"
	"net/http"
	"time"

	"evm-staking-indexer/contracts"
	"evm-staking-indexer/database"
	"evm-staking-indexer/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Store is the read side of the storage gateway; *database.Storage satisfies it.
type Store interface {
	GetTip(ctx context.Context) (uint64, error)
	LatestValidators(ctx context.Context) ([]database.Validator, error)
	LatestValidator(ctx context.Context, validator string) (*database.Validator, error)
	CoinbaseMints(ctx context.Context, delegator string, page database.Page) ([]database.CoinbaseMint, int64, error)
	Delegations(ctx context.Context, delegator string, page database.Page) ([]database.Delegation, int64, error)
	Undelegations(ctx context.Context, delegator string, page database.Page) ([]database.Undelegation, int64, error)
	DelegatorsOf(ctx context.Context, validator string, page database.Page) ([]string, int64, error)
	ValidatorsOf(ctx context.Context, delegator string, page database.Page) ([]string, int64, error)
	DelegatorSums(ctx context.Context, delegator string) (*database.Sums, error)
}

type Staking interface {
	Validators(ctx context.Context, validator common.Address) (*contracts.ValidatorData, error)
	ValidatorStatus(ctx context.Context, validator common.Address) (*contracts.ValidatorStatus, error)
	Delegators(ctx context.Context, validator, delegator common.Address) (*contracts.Bound, error)
}

type Reward interface {
	Rewards(ctx context.Context, delegator common.Address) (*big.Int, error)
	RewardDebt(ctx context.Context, validator, delegator common.Address) (*big.Int, error)
}

type Server struct {
	store   Store
	staking Staking
	reward  Reward
	timeout time.Duration
}

// NewServer returns a server answering from store and, for live contract
// state, from staking and reward. Contract calls are bounded by timeout.
func NewServer(store Store, staking Staking, reward Reward, timeout time.Duration) *Server {
	return &Server{
		store:   store,
		staking: staking,
		reward:  reward,
		timeout: timeout,
	}
}

// NewRouter returns a router with every api route and /metrics.
func (s *Server) NewRouter() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/tip", s.HandleTip).Methods(http.MethodGet)

	r.HandleFunc("/api/validator/list", s.HandleValidatorList).Methods(http.MethodGet)
	r.HandleFunc("/api/validator/snapshot", s.HandleValidatorSnapshot).Methods(http.MethodGet)
	r.HandleFunc("/api/validator/detail", s.HandleValidatorDetail).Methods(http.MethodGet)
	r.HandleFunc("/api/validator/status", s.HandleValidatorStatus).Methods(http.MethodGet)

	r.HandleFunc("/api/claims", s.HandleClaims).Methods(http.MethodGet)
	r.HandleFunc("/api/delegations", s.HandleDelegations).Methods(http.MethodGet)
	r.HandleFunc("/api/undelegations", s.HandleUndelegations).Methods(http.MethodGet)
	r.HandleFunc("/api/delegators", s.HandleDelegators).Methods(http.MethodGet)
	r.HandleFunc("/api/validators", s.HandleValidators).Methods(http.MethodGet)
	r.HandleFunc("/api/sum", s.HandleSum).Methods(http.MethodGet)

	r.HandleFunc("/api/bound", s.HandleBound).Methods(http.MethodGet)
	r.HandleFunc("/api/reward", s.HandleReward).Methods(http.MethodGet)
	r.HandleFunc("/api/debt", s.HandleDebt).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("api server shutdown: %s", err)
		}
	}()

	logger.Info("serving api on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) contractContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), s.timeout)
}
