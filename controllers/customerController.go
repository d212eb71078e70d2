package controllers

import (
	"errors"
	"strings"

	"belegflow-backend/middlewares"
	"belegflow-backend/models"
	"belegflow-backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CustomerCreateDTO struct {
	CompanyName       string  `json:"company_name" validate:"required,min=1"`
	ContactName       string  `json:"contact_name" validate:"omitempty"`
	Email             string  `json:"email" validate:"required,email"`
	PhoneNumber       string  `json:"phone_number" validate:"omitempty"`
	Address           string  `json:"address" validate:"omitempty"`
	City              string  `json:"city" validate:"omitempty"`
	Country           string  `json:"country" validate:"omitempty"`
	Zip               string  `json:"zip" validate:"omitempty"`
	UID               string  `json:"uid" validate:"omitempty"`
	DefaultVatPercent float64 `json:"default_vat_percent" validate:"omitempty,gte=0,lte=100"`
}

type CustomerUpdateDTO struct {
	ContactName       *string  `json:"contact_name" validate:"omitempty"`
	Email             *string  `json:"email" validate:"omitempty,email"`
	PhoneNumber       *string  `json:"phone_number" validate:"omitempty"`
	Address           *string  `json:"address" validate:"omitempty"`
	City              *string  `json:"city" validate:"omitempty"`
	Country           *string  `json:"country" validate:"omitempty"`
	Zip               *string  `json:"zip" validate:"omitempty"`
	UID               *string  `json:"uid" validate:"omitempty"`
	DefaultVatPercent *float64 `json:"default_vat_percent" validate:"omitempty,gte=0,lte=100"`
}

// POST /api/customer
func CreateCustomer(c *fiber.Ctx) error {
	var in CustomerCreateDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	utils.NormalizeDTO(&in)

	db, _, err := tenantEngine(c)
	if err != nil {
		return err
	}

	customer := models.Customer{
		CompanyName:       in.CompanyName,
		ContactName:       in.ContactName,
		Email:             in.Email,
		PhoneNumber:       in.PhoneNumber,
		Address:           in.Address,
		City:              in.City,
		Country:           in.Country,
		Zip:               in.Zip,
		UID:               in.UID,
		DefaultVatPercent: in.DefaultVatPercent,
		Active:            true,
	}
	if customer.DefaultVatPercent == 0 {
		customer.DefaultVatPercent = 18
	}

	if err := db.Create(&customer).Error; err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "could not create customer")
	}
	return c.Status(fiber.StatusCreated).JSON(customer)
}

// GET /api/customers
func GetCustomers(c *fiber.Ctx) error {
	db, _, err := tenantEngine(c)
	if err != nil {
		return err
	}

	var customers []models.Customer
	if err := db.Order("company_name ASC").Find(&customers).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "db error")
	}
	return c.JSON(fiber.Map{
		"customers": customers,
		"message":   "success",
	})
}

// GET /api/customer/:id
func GetCustomer(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing customer id in path")
	}

	db, _, err := tenantEngine(c)
	if err != nil {
		return err
	}

	var customer models.Customer
	if err := db.First(&customer, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "customer not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "db error")
	}
	return c.JSON(customer)
}

// PUT /api/customer/:id
func UpdateCustomer(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing customer id in path")
	}

	var in CustomerUpdateDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	utils.NormalizePtrDTO(&in)

	db, _, err := tenantEngine(c)
	if err != nil {
		return err
	}

	var existing models.Customer
	if err := db.First(&existing, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "customer not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "db error")
	}

	updates := utils.UpdatesFromPtrDTO(&in, nil)
	if len(updates) > 0 {
		if err := db.Model(&models.Customer{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "could not update customer")
		}
	}

	var out models.Customer
	if err := db.First(&out, "id = ?", id).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to reload customer")
	}
	return c.JSON(out)
}
