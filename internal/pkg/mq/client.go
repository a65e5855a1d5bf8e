package mq

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/streadway/amqp"
)

// Publisher 发布 JSON 消息到指定队列
type Publisher interface {
	PublishJSON(queueName string, v any) error
}

// RabbitMQClient 封装了 RabbitMQ 的连接和通道
type RabbitMQClient struct {
	mu       sync.Mutex // amqp.Channel 不能被多个 goroutine 同时发布
	conn     *amqp.Connection
	channel  *amqp.Channel
	declared map[string]bool
}

// NewRabbitMQClient 创建一个新的 RabbitMQ 客户端实例
func NewRabbitMQClient(amqpURL string) (*RabbitMQClient, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	return &RabbitMQClient{
		conn:     conn,
		channel:  ch,
		declared: make(map[string]bool),
	}, nil
}

// DeclareQueue 声明一个持久化队列
func (c *RabbitMQClient) DeclareQueue(queueName string) (amqp.Queue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.declareLocked(queueName)
}

func (c *RabbitMQClient) declareLocked(queueName string) (amqp.Queue, error) {
	q, err := c.channel.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err == nil {
		c.declared[queueName] = true
	}
	return q, err
}

// Publish a message to a specific queue
func (c *RabbitMQClient) Publish(queueName string, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.declared[queueName] {
		if _, err := c.declareLocked(queueName); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", queueName, err)
		}
	}
	return c.channel.Publish(
		"",        // exchange (default)
		queueName, // routing key (queue name)
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent, // make message persistent
		},
	)
}

// PublishJSON 序列化后发布
func (c *RabbitMQClient) PublishJSON(queueName string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return c.Publish(queueName, body)
}

// Close the channel and connection
func (c *RabbitMQClient) Close() {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
