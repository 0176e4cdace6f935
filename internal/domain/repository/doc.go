// Package repository define los contratos de acceso a datos del subsistema
// de autenticación. Las entidades se relacionan por foreign key (user_id) y
// se mutan únicamente a través de estos contratos, nunca por mutación
// ambiente de un grafo de objetos.
package repository
