package main

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"fieldwork/internal/config"
	"fieldwork/internal/database"
	"fieldwork/internal/domain/assignment"
	"fieldwork/internal/domain/auth"
	"fieldwork/internal/domain/equipment"
	jwtsvc "fieldwork/internal/pkg/jwt"
	"fieldwork/internal/pkg/logger"
)

type seedUser struct {
	name     string
	email    string
	password string
	role     auth.UserRole
}

var users = []seedUser{
	{"Rina Supervisor", "supervisor@fieldwork.local", "supervisor123", auth.RoleSupervisor},
	{"Hadi Manager", "manager@fieldwork.local", "manager123", auth.RoleManager},
	{"Budi Teknisi", "budi@fieldwork.local", "teknisi123", auth.RoleTechnician},
	{"Sari Teknisi", "sari@fieldwork.local", "teknisi123", auth.RoleTechnician},
}

var items = []equipment.CreateItemRequest{
	{Name: "Drill", TotalStock: 10},
	{Name: "Ladder", TotalStock: 6},
	{Name: "Multimeter", TotalStock: 8},
	{Name: "Safety Harness", TotalStock: 12},
	{Name: "Cable Tester", TotalStock: 4},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("database connect failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("database migrate failed", zap.Error(err))
	}

	ctx := context.Background()
	userRepo := auth.NewRepository(db)
	authService := auth.NewService(userRepo, jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL))

	created := make(map[auth.UserRole][]int64)
	for _, su := range users {
		u, err := authService.Register(ctx, su.name, su.email, su.password, su.role)
		if errors.Is(err, auth.ErrEmailAlreadyExists) {
			log.Info("user exists, skipping", zap.String("email", su.email))
			existing, err := userRepo.GetByEmail(ctx, su.email)
			if err != nil {
				log.Fatal("load existing user", zap.Error(err))
			}
			u = existing
		} else if err != nil {
			log.Fatal("create user", zap.String("email", su.email), zap.Error(err))
		} else {
			log.Info("user created", zap.String("email", su.email), zap.String("role", string(su.role)))
		}
		created[u.Role] = append(created[u.Role], u.ID)
	}

	supervisor := auth.Caller{ID: created[auth.RoleSupervisor][0], Role: auth.RoleSupervisor}

	ledger := equipment.NewLedger()
	equipmentService := equipment.NewService(db, ledger, nil, log)

	existing, err := equipmentService.ListItems(ctx, "")
	if err != nil {
		log.Fatal("list equipment", zap.Error(err))
	}
	if len(existing) > 0 {
		log.Info("equipment already seeded", zap.Int("items", len(existing)))
		return
	}

	var drill *equipment.Item
	for _, req := range items {
		item, err := equipmentService.CreateItem(ctx, supervisor.ID, req)
		if err != nil {
			log.Fatal("create equipment", zap.String("name", req.Name), zap.Error(err))
		}
		if drill == nil {
			drill = item
		}
	}

	engine := assignment.NewEngine(assignment.Deps{
		DB:                db,
		Ledger:            ledger,
		Directory:         userRepo,
		Log:               log,
		ManagerValidation: cfg.ManagerValidation,
	})

	start := time.Now().Truncate(24 * time.Hour)
	job, err := engine.CreateJob(ctx, supervisor, assignment.CreateJobRequest{
		Title:           "Panel maintenance, Gedung B",
		Description:     "Quarterly inspection of the distribution panels",
		Category:        "maintenance",
		ReportFrequency: "harian",
		LocationName:    "Gedung B",
		Latitude:        -6.2,
		Longitude:       106.8,
		StartDate:       start.Format("2006-01-02"),
		EndDate:         start.AddDate(0, 0, 7).Format("2006-01-02"),
		TechnicianIDs:   created[auth.RoleTechnician],
		Equipment: []equipment.Line{
			{ItemID: drill.ID, Quantity: 2, BorrowerID: created[auth.RoleTechnician][0]},
		},
	})
	if err != nil {
		log.Fatal("create demo job", zap.Error(err))
	}

	log.Info("seed completed",
		zap.Int("users", len(users)),
		zap.Int("items", len(items)),
		zap.Int64("job_id", job.ID),
	)
}
