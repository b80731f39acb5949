package repository

import "database/sql"

type Repository struct {
	WorkerRepo WorkerRepositoryInterface
}

func New(db *sql.DB) *Repository {
	return &Repository{
		WorkerRepo: NewWorkerRepository(db),
	}
}
